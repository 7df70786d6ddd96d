package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"frequency"`
}

type PostingList []Posting
