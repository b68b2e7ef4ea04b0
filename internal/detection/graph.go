package detection

import "github.com/vanshika/muletrace/internal/domain"

// Graph is a directed multigraph of money flow. Only accounts that send are keys;
// parallel edges from repeated transactions are preserved.
type Graph struct {
	adjacency map[string][]string
	senders   []string
}

// BuildGraph appends one edge per transaction, keyed by sender, in input order.
func BuildGraph(txs []domain.TransactionRecord) *Graph {
	g := &Graph{adjacency: make(map[string][]string)}
	for _, tx := range txs {
		if _, ok := g.adjacency[tx.SenderID]; !ok {
			g.senders = append(g.senders, tx.SenderID)
		}
		g.adjacency[tx.SenderID] = append(g.adjacency[tx.SenderID], tx.ReceiverID)
	}
	return g
}

// Senders returns the graph keys in order of first appearance.
func (g *Graph) Senders() []string {
	return g.senders
}

// Neighbors returns the receivers of every transaction sent by account.
func (g *Graph) Neighbors(account string) []string {
	return g.adjacency[account]
}

// Len reports the number of sending accounts.
func (g *Graph) Len() int {
	return len(g.senders)
}
