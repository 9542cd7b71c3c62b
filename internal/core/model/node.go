package model

// Graph node types. Relationship fields hold ids of other nodes, never
// embedded child objects; they are conceptually sets and must not contain
// the same id twice.

type LocationNode struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Country string   `json:"country"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Rank    int      `json:"rank"`
	Works   []string `json:"works"`
	Grants  []string `json:"grants"`
	Experts []string `json:"experts"`
}

type WorkNode struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Abstract       string   `json:"abstract,omitempty"`
	Issued         string   `json:"issued,omitempty"`
	Confidence     float64  `json:"confidence"`
	Locations      []string `json:"location"`
	RelatedExperts []string `json:"relatedExperts"`
}

type GrantNode struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Funder         string   `json:"funder,omitempty"`
	StartDate      string   `json:"startDate,omitempty"`
	EndDate        string   `json:"endDate,omitempty"`
	Confidence     float64  `json:"confidence"`
	Locations      []string `json:"location"`
	RelatedExperts []string `json:"relatedExperts"`
}

type ExpertNode struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Works     []string `json:"works"`
	Grants    []string `json:"grants"`
	Locations []string `json:"location"`
}

// Graph is the deduplicated entity graph produced by one build. It is
// assembled in memory and handed off whole to the persistence layer.
type Graph struct {
	SessionID string                   `json:"sessionId"`
	Locations map[string]*LocationNode `json:"locations"`
	Works     map[string]*WorkNode     `json:"works"`
	Grants    map[string]*GrantNode    `json:"grants"`
	Experts   map[string]*ExpertNode   `json:"experts"`
}
