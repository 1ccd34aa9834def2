package query

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

type stubPatentReader struct {
	calls []string
	refs  []core.PatentReference
}

func (s *stubPatentReader) SearchPatents(_ context.Context, query string, options core.SearchOptions, _ ...core.CallOption) (core.SearchResponse, error) {
	s.calls = append(s.calls, "search:"+query+":"+options.Range)
	return core.SearchResponse{Status: http.StatusOK, Data: core.SearchData{Query: query, Total: 1, Results: []core.SearchResult{{ID: "1234567A1"}}}}, nil
}

func (s *stubPatentReader) GetBibliographicData(_ context.Context, ref core.PatentReference, _ ...core.CallOption) (core.BibliographicData, error) {
	s.calls = append(s.calls, "biblio")
	s.refs = append(s.refs, ref)
	return core.BibliographicData{Title: "Title"}, nil
}

func (s *stubPatentReader) GetClaims(_ context.Context, ref core.PatentReference, _ ...core.CallOption) (core.Claims, error) {
	s.calls = append(s.calls, "claims")
	s.refs = append(s.refs, ref)
	return core.Claims{Independent: []string{"1."}, Dependent: []string{}}, nil
}

func (s *stubPatentReader) GetFamily(_ context.Context, ref core.PatentReference, _ ...core.CallOption) ([]core.FamilyMember, error) {
	s.calls = append(s.calls, "family")
	s.refs = append(s.refs, ref)
	return []core.FamilyMember{{PublicationNumber: "EP1000000A1"}}, nil
}

func (s *stubPatentReader) GetLegalStatus(_ context.Context, ref core.PatentReference, _ ...core.CallOption) ([]core.LegalStatus, error) {
	s.calls = append(s.calls, "legal")
	s.refs = append(s.refs, ref)
	return []core.LegalStatus{{Status: "AK"}}, nil
}

func (s *stubPatentReader) GetClassification(_ context.Context, class string, options core.ClassificationOptions, _ ...core.CallOption) (core.ClassificationResponse, error) {
	s.calls = append(s.calls, "classification:"+class+":"+options.Depth)
	return core.ClassificationResponse{Status: http.StatusOK, Data: core.ClassificationNode{Class: class}}, nil
}

func (s *stubPatentReader) SearchClassification(_ context.Context, query string, _ ...core.CallOption) (core.ClassificationResponse, error) {
	s.calls = append(s.calls, "classification-search:"+query)
	return core.ClassificationResponse{Status: http.StatusOK, Data: core.ClassificationNode{Class: "G06F"}}, nil
}

func (s *stubPatentReader) ConvertNumber(_ context.Context, kind, sourceFormat, number, targetFormat string, _ ...core.CallOption) (core.NumberConversionResponse, error) {
	s.calls = append(s.calls, "convert:"+kind+":"+sourceFormat+":"+number+":"+targetFormat)
	return core.NumberConversionResponse{Status: http.StatusOK}, nil
}

func testReference() core.PatentReference {
	return core.PatentReference{Kind: core.ReferencePublication, Format: core.FormatEpodoc, Number: "EP1000000"}
}

func TestQueries_DelegateToReader(t *testing.T) {
	reader := &stubPatentReader{}
	queries := NewQueries(reader)
	ctx := context.Background()

	search, err := queries.SearchPatents.Query(ctx, SearchPatentsMessage{Query: "computer", Options: core.SearchOptions{Range: "1-5"}})
	if err != nil {
		t.Fatalf("search query: %v", err)
	}
	if search.Data.Total != 1 || search.Data.Results[0].ID != "1234567A1" {
		t.Fatalf("unexpected search result %#v", search)
	}
	if _, err := queries.GetBibliographicData.Query(ctx, GetBibliographicDataMessage{Reference: testReference()}); err != nil {
		t.Fatalf("biblio query: %v", err)
	}
	if _, err := queries.GetClaims.Query(ctx, GetClaimsMessage{Reference: testReference()}); err != nil {
		t.Fatalf("claims query: %v", err)
	}
	if _, err := queries.GetFamily.Query(ctx, GetFamilyMessage{Reference: testReference()}); err != nil {
		t.Fatalf("family query: %v", err)
	}
	if _, err := queries.GetLegalStatus.Query(ctx, GetLegalStatusMessage{Reference: testReference()}); err != nil {
		t.Fatalf("legal query: %v", err)
	}
	if _, err := queries.GetClassification.Query(ctx, GetClassificationMessage{Class: "H04W", Options: core.ClassificationOptions{Depth: "1"}}); err != nil {
		t.Fatalf("classification query: %v", err)
	}
	if _, err := queries.SearchClassification.Query(ctx, SearchClassificationMessage{Query: "computer"}); err != nil {
		t.Fatalf("classification search query: %v", err)
	}
	if _, err := queries.ConvertNumber.Query(ctx, ConvertNumberMessage{
		Kind:         core.ReferenceApplication,
		SourceFormat: core.FormatDocdb,
		Number:       "EP.99203729.A",
		TargetFormat: core.FormatEpodoc,
	}); err != nil {
		t.Fatalf("convert query: %v", err)
	}

	expected := []string{
		"search:computer:1-5",
		"biblio",
		"claims",
		"family",
		"legal",
		"classification:H04W:1",
		"classification-search:computer",
		"convert:application:docdb:EP.99203729.A:epodoc",
	}
	if len(reader.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %v", len(expected), reader.calls)
	}
	for i := range expected {
		if reader.calls[i] != expected[i] {
			t.Fatalf("call %d: expected %q, got %q", i, expected[i], reader.calls[i])
		}
	}
	for _, ref := range reader.refs {
		if ref != testReference() {
			t.Fatalf("unexpected reference forwarded: %#v", ref)
		}
	}
}

func TestQueries_NilReaderReturnsInternalError(t *testing.T) {
	_, err := NewSearchPatentsQuery(nil).Query(context.Background(), SearchPatentsMessage{Query: "computer"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal || rich.TextCode != core.ErrorTextInternal {
		t.Fatalf("unexpected envelope %q %q", rich.Category, rich.TextCode)
	}

	var family *GetFamilyQuery
	if _, err := family.Query(context.Background(), GetFamilyMessage{}); err == nil {
		t.Fatalf("expected nil receiver to fail")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		field   string
		wantErr bool
	}{
		{name: "search ok", msg: SearchPatentsMessage{Query: "ti=computer"}},
		{name: "search blank", msg: SearchPatentsMessage{Query: "  "}, field: "query", wantErr: true},
		{name: "search bad range", msg: SearchPatentsMessage{Query: "x", Options: core.SearchOptions{Range: "5"}}, field: "range", wantErr: true},
		{name: "biblio ok", msg: GetBibliographicDataMessage{Reference: testReference()}},
		{name: "biblio bad kind", msg: GetBibliographicDataMessage{Reference: core.PatentReference{Kind: "grant", Format: core.FormatEpodoc, Number: "EP1"}}, field: "kind", wantErr: true},
		{name: "claims bad format", msg: GetClaimsMessage{Reference: core.PatentReference{Kind: core.ReferencePublication, Format: "original", Number: "EP1"}}, field: "format", wantErr: true},
		{name: "family missing number", msg: GetFamilyMessage{Reference: core.PatentReference{Kind: core.ReferencePublication, Format: core.FormatDocdb}}, field: "number", wantErr: true},
		{name: "legal ok", msg: GetLegalStatusMessage{Reference: testReference()}},
		{name: "classification blank", msg: GetClassificationMessage{}, field: "class", wantErr: true},
		{name: "classification bad depth", msg: GetClassificationMessage{Class: "H04W", Options: core.ClassificationOptions{Depth: "9"}}, field: "depth", wantErr: true},
		{name: "classification search blank", msg: SearchClassificationMessage{}, field: "query", wantErr: true},
		{name: "convert bad target", msg: ConvertNumberMessage{Kind: core.ReferenceApplication, SourceFormat: core.FormatDocdb, Number: "1", TargetFormat: "original"}, field: "targetFormat", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("expected valid message, got %v", err)
				}
				return
			}
			if !core.IsValidation(err) {
				t.Fatalf("expected validation kind, got %s (%v)", core.KindOf(err), err)
			}
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope")
			}
			found := false
			for _, field := range rich.AllValidationErrors() {
				if field.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q field error, got %v", tc.field, rich.AllValidationErrors())
			}
		})
	}
}

func TestMessageTypesAreDistinct(t *testing.T) {
	types := []string{
		SearchPatentsMessage{}.Type(),
		GetBibliographicDataMessage{}.Type(),
		GetClaimsMessage{}.Type(),
		GetFamilyMessage{}.Type(),
		GetLegalStatusMessage{}.Type(),
		GetClassificationMessage{}.Type(),
		SearchClassificationMessage{}.Type(),
		ConvertNumberMessage{}.Type(),
	}
	seen := map[string]bool{}
	for _, typ := range types {
		if seen[typ] {
			t.Fatalf("duplicate message type %q", typ)
		}
		seen[typ] = true
	}
}
