package card

import "time"

// Info identifies a trading card as recognized by the grading backend.
type Info struct {
	Name     string `json:"name"`
	Set      string `json:"set"`
	Number   string `json:"number"`
	Rarity   string `json:"rarity,omitempty"`
	Year     int    `json:"year,omitempty"`
	Language string `json:"language,omitempty"`
}

// Grade is one scored category on a 0-10 scale.
type Grade struct {
	Grade       float64  `json:"grade"`
	Description string   `json:"description"`
	Defects     []string `json:"defects"`
}

// SideGrades holds the per-category scores for one side of a card.
// Holographic is only present for foil cards.
type SideGrades struct {
	Overall     Grade  `json:"overall"`
	Corners     Grade  `json:"corners"`
	Edges       Grade  `json:"edges"`
	Surface     Grade  `json:"surface"`
	Holographic *Grade `json:"holographic,omitempty"`
}

// SideAnalysis is the full analysis of one side (front or back).
type SideAnalysis struct {
	Side      string     `json:"side"`
	CardInfo  Info       `json:"cardInfo"`
	Grades    SideGrades `json:"grades"`
	Timestamp string     `json:"timestamp"`
}

// CombinedGrade is the cross-side aggregate score.
type CombinedGrade struct {
	Overall float64 `json:"overall"`
	Summary string  `json:"summary"`
}

// ResultImages carries the server-persisted URLs of the submitted images.
type ResultImages struct {
	FrontURL string `json:"frontUrl"`
	BackURL  string `json:"backUrl"`
}

// GradingResult is the terminal successful payload of a grading submission.
// Immutable once received.
type GradingResult struct {
	TCGModel  string        `json:"tcgmodel"`
	CardInfo  Info          `json:"cardInfo"`
	Front     SideAnalysis  `json:"front"`
	Back      SideAnalysis  `json:"back"`
	Combined  CombinedGrade `json:"combined"`
	Timestamp string        `json:"timestamp"`
	Images    ResultImages  `json:"images"`
}

// BulkEntry is one locally accumulated card awaiting batch submission.
// Insertion order is capture order and drives user-facing numbering.
type BulkEntry struct {
	ID    string `json:"id"`
	Front Image  `json:"front"`
	Back  Image  `json:"back"`
}

// RecognizedAt is recorded when a card is matched through the identify flow.
type Recognition struct {
	Card         Info
	Confidence   float64
	RecognizedAt time.Time
}
