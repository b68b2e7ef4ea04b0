package repository

const maxSequenceCypher = `
MATCH (:Account)-[t:SENT]->(:Account)
RETURN coalesce(max(t.seq), -1) AS maxSeq
`

const saveTransactionsCypher = `
UNWIND $rows AS row
MERGE (s:Account {id: row.senderId})
MERGE (r:Account {id: row.receiverId})
CREATE (s)-[t:SENT {
  id: row.transactionId,
  seq: row.seq,
  amount: row.amount,
  timestamp: row.timestamp
}]->(r)
`

const listTransactionsCypher = `
MATCH (s:Account)-[t:SENT]->(r:Account)
RETURN t.id AS transactionId,
       s.id AS senderId,
       r.id AS receiverId,
       t.amount AS amount,
       t.timestamp AS timestamp
ORDER BY t.seq ASC
SKIP $skip
LIMIT $limit
`
