package core

import "time"

const (
	ReferenceApplication = "application"
	ReferencePriority    = "priority"
	ReferencePublication = "publication"

	FormatDocdb  = "docdb"
	FormatEpodoc = "epodoc"

	ConstituentBiblio    = "biblio"
	ConstituentFullCycle = "full-cycle"
	ConstituentAbstract  = "abstract"

	// NoClassificationResultsTitle marks the record returned by a
	// classification search without hits.
	NoClassificationResultsTitle = "No results found"
)

var (
	ReferenceKinds       = []string{ReferenceApplication, ReferencePriority, ReferencePublication}
	NumberFormats        = []string{FormatDocdb, FormatEpodoc}
	SearchConstituents   = []string{ConstituentBiblio, ConstituentFullCycle, ConstituentAbstract}
	ClassificationDepths = []string{"0", "1", "2", "3", "all"}
)

// AccessToken is an OAuth bearer token issued by the client-credentials grant.
type AccessToken struct {
	Value     string
	TokenType string
	ExpiresIn time.Duration
	IssuedAt  time.Time
	Scope     string
}

func (t AccessToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ExpiresIn)
}

// ExpiredAt reports whether the token must be replaced at now, treating the
// last buffer of its lifetime as already expired.
func (t AccessToken) ExpiredAt(now time.Time, buffer time.Duration) bool {
	if t.Value == "" || t.IssuedAt.IsZero() {
		return true
	}
	return !now.Before(t.ExpiresAt().Add(-buffer))
}

type PatentReference struct {
	Kind   string `json:"kind"`
	Format string `json:"format"`
	Number string `json:"number"`
}

type SearchOptions struct {
	Range       string `json:"range,omitempty"`
	Constituent string `json:"constituent,omitempty"`
}

type ClassificationOptions struct {
	Ancestors  *bool  `json:"ancestors,omitempty"`
	Navigation *bool  `json:"navigation,omitempty"`
	Depth      string `json:"depth,omitempty"`
}

type BibliographicData struct {
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Inventors       []string `json:"inventors"`
	Applicants      []string `json:"applicants"`
	PublicationDate string   `json:"publicationDate"`
	ApplicationDate string   `json:"applicationDate"`
	PriorityDate    string   `json:"priorityDate"`
	Classification  []string `json:"classification"`
}

type Claims struct {
	Independent []string `json:"independent"`
	Dependent   []string `json:"dependent"`
}

type FamilyMember struct {
	PublicationNumber string `json:"publicationNumber"`
	PublicationDate   string `json:"publicationDate"`
	Title             string `json:"title"`
	Abstract          string `json:"abstract"`
	Country           string `json:"country"`
	Kind              string `json:"kind"`
}

type LegalStatus struct {
	Status      string `json:"status"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

type SearchResult struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publicationDate"`
}

type SearchData struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

type SearchResponse struct {
	Status int        `json:"status"`
	Data   SearchData `json:"data"`
}

type ClassificationSubclass struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ClassificationNode struct {
	Class       string                   `json:"class"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Subclasses  []ClassificationSubclass `json:"subclasses"`
}

type ClassificationResponse struct {
	Status int                `json:"status"`
	Data   ClassificationNode `json:"data"`
}

type NumberInput struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	Number string `json:"number"`
}

type NumberOutput struct {
	Format string `json:"format"`
	Number string `json:"number"`
}

type NumberConversion struct {
	Input  NumberInput  `json:"input"`
	Output NumberOutput `json:"output"`
}

type NumberConversionResponse struct {
	Status int              `json:"status"`
	Data   NumberConversion `json:"data"`
}
