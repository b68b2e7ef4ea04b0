package detection

// Scoreboard accumulates points and pattern tags per account. Accounts iterate in
// the order of their first contribution so reports are reproducible.
type Scoreboard struct {
	index   map[string]int
	entries []*scoreEntry
}

type scoreEntry struct {
	account string
	points  int
	tags    []string
}

// NewScoreboard returns an empty Scoreboard.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{index: make(map[string]int)}
}

// Add credits points to account and records tag. Repeated tags are kept once.
// Points are not capped here.
func (s *Scoreboard) Add(account string, points int, tag string) {
	e := s.entry(account)
	e.points += points
	if !containsTag(e.tags, tag) {
		e.tags = append(e.tags, tag)
	}
}

// Merge folds other into s. Accounts new to s are appended in other's order.
func (s *Scoreboard) Merge(other *Scoreboard) {
	if other == nil {
		return
	}
	for _, oe := range other.entries {
		e := s.entry(oe.account)
		e.points += oe.points
		for _, tag := range oe.tags {
			if !containsTag(e.tags, tag) {
				e.tags = append(e.tags, tag)
			}
		}
	}
}

// Points returns the uncapped total for account.
func (s *Scoreboard) Points(account string) int {
	if i, ok := s.index[account]; ok {
		return s.entries[i].points
	}
	return 0
}

// Tags returns the tags recorded for account in insertion order.
func (s *Scoreboard) Tags(account string) []string {
	if i, ok := s.index[account]; ok {
		return append([]string(nil), s.entries[i].tags...)
	}
	return nil
}

// Accounts lists accounts in order of first contribution.
func (s *Scoreboard) Accounts() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.account
	}
	return out
}

// Len reports how many accounts have contributions.
func (s *Scoreboard) Len() int {
	return len(s.entries)
}

func (s *Scoreboard) entry(account string) *scoreEntry {
	if i, ok := s.index[account]; ok {
		return s.entries[i]
	}
	e := &scoreEntry{account: account}
	s.index[account] = len(s.entries)
	s.entries = append(s.entries, e)
	return e
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
