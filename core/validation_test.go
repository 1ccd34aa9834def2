package core

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func fieldNames(t *testing.T, err error) map[string]bool {
	t.Helper()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T (%v)", err, err)
	}
	names := map[string]bool{}
	for _, field := range rich.AllValidationErrors() {
		names[field.Field] = true
	}
	return names
}

func TestValidator_PatentReference(t *testing.T) {
	v := Validator{}
	if err := v.PatentReference(PatentReference{Kind: "application", Format: "docdb", Number: "EP1000000"}); err != nil {
		t.Fatalf("expected valid reference, got %v", err)
	}

	err := v.PatentReference(PatentReference{Kind: "invalid-kind", Format: "docdb", Number: "EP1000000"})
	if !IsValidation(err) {
		t.Fatalf("expected validation kind, got %s", KindOf(err))
	}
	if names := fieldNames(t, err); !names["kind"] || len(names) != 1 {
		t.Fatalf("expected only kind to be reported, got %v", names)
	}

	err = v.PatentReference(PatentReference{})
	names := fieldNames(t, err)
	for _, field := range []string{"kind", "format", "number"} {
		if !names[field] {
			t.Fatalf("expected %s to be reported, got %v", field, names)
		}
	}
}

func TestValidator_SearchInput(t *testing.T) {
	v := Validator{}
	if err := v.SearchInput("ti=plastic", SearchOptions{Range: "1-25", Constituent: ConstituentBiblio}); err != nil {
		t.Fatalf("expected valid search, got %v", err)
	}
	names := fieldNames(t, v.SearchInput("  ", SearchOptions{Range: "25", Constituent: "images"}))
	for _, field := range []string{"query", "range", "constituent"} {
		if !names[field] {
			t.Fatalf("expected %s to be reported, got %v", field, names)
		}
	}
}

func TestValidator_InputOperations(t *testing.T) {
	v := Validator{}
	if err := v.ClassificationInput("H04W", ClassificationOptions{Depth: "all"}); err != nil {
		t.Fatalf("expected valid classification input, got %v", err)
	}
	if names := fieldNames(t, v.ClassificationInput("H04W", ClassificationOptions{Depth: "9"})); !names["depth"] {
		t.Fatalf("expected depth to be reported, got %v", names)
	}
	if names := fieldNames(t, v.ClassificationSearchInput("")); !names["query"] {
		t.Fatalf("expected query to be reported, got %v", names)
	}
	if err := v.NumberConversionInput("application", "docdb", "EP.99203729.A", "epodoc"); err != nil {
		t.Fatalf("expected valid conversion input, got %v", err)
	}
	names := fieldNames(t, v.NumberConversionInput("application", "docdb", "EP.99203729.A", "isbn"))
	if !names["targetFormat"] || len(names) != 1 {
		t.Fatalf("expected only targetFormat to be reported, got %v", names)
	}
}

func TestValidator_OutputsCarryNormalizedValue(t *testing.T) {
	v := Validator{}
	res := SearchResponse{Status: 200, Data: SearchData{Query: "q", Total: 1, Results: []SearchResult{{ID: "", PublicationDate: "2020-01-01"}}}}
	err := v.SearchResponse(res)
	names := fieldNames(t, err)
	if !names["data.results[0].id"] || !names["data.results[0].publicationDate"] {
		t.Fatalf("unexpected fields %v", names)
	}
	var rich *goerrors.Error
	goerrors.As(err, &rich)
	if _, ok := rich.Metadata["normalized"].(SearchResponse); !ok {
		t.Fatalf("expected normalized response in metadata, got %#v", rich.Metadata["normalized"])
	}

	if err := v.Claims(Claims{Independent: []string{}, Dependent: []string{}}); err != nil {
		t.Fatalf("expected empty claim lists to pass, got %v", err)
	}
	if names := fieldNames(t, v.Claims(Claims{})); !names["independent"] || !names["dependent"] {
		t.Fatalf("expected missing lists to be reported, got %v", names)
	}
	if err := v.Classification(ClassificationResponse{Status: 200, Data: ClassificationNode{Title: NoClassificationResultsTitle, Subclasses: []ClassificationSubclass{}}}); err != nil {
		t.Fatalf("expected no-results sentinel to pass, got %v", err)
	}
	if err := v.LegalStatus([]LegalStatus{{Status: "AK", Date: "20000816"}}); err != nil {
		t.Fatalf("expected valid legal status, got %v", err)
	}
	if names := fieldNames(t, v.Family([]FamilyMember{{PublicationDate: "2000"}})); !names["members[0].publicationNumber"] || !names["members[0].publicationDate"] {
		t.Fatalf("unexpected family fields %v", names)
	}
}
