package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// EnvelopeKey is the root element wrapping every OPS response.
const EnvelopeKey = "ops:world-patent-data"

// DecodePayload parses a response body into a generic JSON tree. Bodies that
// are not a JSON object fail as validation errors: the upstream shape is wrong.
func DecodePayload(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, NewValidationError("ops: malformed upstream response", goerrors.FieldError{
			Field:   "body",
			Message: err.Error(),
		})
	}
	if payload == nil {
		return nil, NewValidationError("ops: malformed upstream response", goerrors.FieldError{
			Field:   "body",
			Message: "expected a JSON object",
		})
	}
	return payload, nil
}

func envelope(payload map[string]any) any {
	return GetPath(payload, EnvelopeKey)
}

func NormalizeSearch(payload map[string]any, query string, status int) SearchResponse {
	search := GetPath(envelope(payload), "ops:biblio-search")
	total, _ := strconv.Atoi(StringAt(search, "@total-result-count"))
	result := GetPath(search, "ops:search-result")

	results := []SearchResult{}
	if documents := GetPath(result, "exchange-documents"); documents != nil {
		for _, entry := range AsSlice(documents) {
			for _, doc := range SliceAt(entry, "exchange-document") {
				biblio := GetPath(doc, "bibliographic-data")
				abstract := localizedText(GetPath(biblio, "abstract"), "en")
				if abstract == "" {
					abstract = localizedText(GetPath(doc, "abstract"), "en")
				}
				results = append(results, SearchResult{
					ID:              StringAt(doc, "@doc-number") + StringAt(doc, "@kind"),
					Title:           localizedText(GetPath(biblio, "invention-title"), "en"),
					Abstract:        abstract,
					PublicationDate: StringAt(biblio, "publication-reference", "document-id", "date"),
				})
			}
		}
	} else {
		// Searches without a constituent only list publication references.
		for _, ref := range SliceAt(result, "ops:publication-reference") {
			docID := First(GetPath(ref, "document-id"))
			results = append(results, SearchResult{
				ID:              StringAt(docID, "doc-number") + StringAt(docID, "kind"),
				PublicationDate: StringAt(docID, "date"),
			})
		}
	}
	if total == 0 {
		total = len(results)
	}

	return SearchResponse{
		Status: status,
		Data: SearchData{
			Query:   query,
			Total:   total,
			Results: results,
		},
	}
}

func NormalizeBibliographicData(payload map[string]any) BibliographicData {
	doc := GetPath(envelope(payload), "exchange-documents", "exchange-document")
	biblio := GetPath(doc, "bibliographic-data")
	parties := GetPath(biblio, "parties")

	inventors := []string{}
	for _, inventor := range SliceAt(parties, "inventors", "inventor") {
		if name := partyName(inventor, "inventor-name"); name != "" {
			inventors = appendUnique(inventors, name)
		}
	}
	applicants := []string{}
	for _, applicant := range SliceAt(parties, "applicants", "applicant") {
		if name := partyName(applicant, "applicant-name"); name != "" {
			applicants = appendUnique(applicants, name)
		}
	}

	classification := []string{}
	for _, entry := range SliceAt(biblio, "patent-classifications", "patent-classification") {
		code := StringAt(entry, "section") + StringAt(entry, "class") + StringAt(entry, "subclass")
		if code != "" {
			classification = appendUnique(classification, code)
		}
	}

	abstract := localizedText(GetPath(biblio, "abstract"), "en")
	if abstract == "" {
		abstract = localizedText(GetPath(doc, "abstract"), "en")
	}

	return BibliographicData{
		Title:           localizedText(GetPath(biblio, "invention-title"), "en"),
		Abstract:        abstract,
		Inventors:       inventors,
		Applicants:      applicants,
		PublicationDate: StringAt(biblio, "publication-reference", "document-id", "date"),
		ApplicationDate: StringAt(biblio, "application-reference", "document-id", "date"),
		PriorityDate:    StringAt(biblio, "priority-claims", "priority-claim", "document-id", "date"),
		Classification:  classification,
	}
}

func NormalizeClaims(payload map[string]any) Claims {
	root := envelope(payload)
	claims := GetPath(root, "ops:document", "claims", "claim")
	if claims == nil {
		claims = GetPath(root, "ftxt:fulltext-documents", "ftxt:fulltext-document", "claims", "claim")
	}

	out := Claims{Independent: []string{}, Dependent: []string{}}
	for _, claim := range AsSlice(claims) {
		text := claimText(claim)
		if text == "" {
			continue
		}
		switch strings.ToLower(StringAt(claim, "@type")) {
		case "independent":
			out.Independent = append(out.Independent, text)
		case "dependent":
			out.Dependent = append(out.Dependent, text)
		}
	}
	return out
}

func NormalizeFamily(payload map[string]any) []FamilyMember {
	family := GetPath(envelope(payload), "ops:patent-family")
	members := GetPath(family, "ops:family-member")
	if members == nil {
		members = GetPath(family, "family-member")
	}

	out := []FamilyMember{}
	for _, member := range AsSlice(members) {
		docID := First(GetPath(member, "publication-reference", "document-id"))
		country := StringAt(docID, "country")
		kind := StringAt(docID, "kind")
		out = append(out, FamilyMember{
			PublicationNumber: country + StringAt(docID, "doc-number") + kind,
			PublicationDate:   StringAt(docID, "date"),
			Title:             localizedText(GetPath(member, "invention-title"), "en"),
			Abstract:          localizedText(GetPath(member, "abstract"), "en"),
			Country:           country,
			Kind:              kind,
		})
	}
	return out
}

func NormalizeLegalStatus(payload map[string]any) []LegalStatus {
	entries := GetPath(envelope(payload), "ops:legal-status-data", "legal-status")

	out := []LegalStatus{}
	for _, entry := range AsSlice(entries) {
		for _, event := range SliceAt(entry, "legal-event") {
			out = append(out, LegalStatus{
				Status:      StringAtAny(event, "code", "@code"),
				Date:        StringAtAny(event, "date", "@date"),
				Description: StringAtAny(event, "title", "@desc"),
				Country:     StringAtAny(event, "country", "@country"),
			})
		}
	}
	return out
}

func NormalizeClassification(payload map[string]any, status int) ClassificationResponse {
	item := GetPath(envelope(payload), "ops:classification-data", "classification-item")

	subclasses := []ClassificationSubclass{}
	for _, child := range SliceAt(item, "child-items") {
		subclasses = append(subclasses, classificationSubclass(child))
	}

	return ClassificationResponse{
		Status: status,
		Data: ClassificationNode{
			Class:       StringAt(item, "classification-symbol"),
			Title:       StringAt(item, "title-part"),
			Description: StringAt(item, "description-part"),
			Subclasses:  subclasses,
		},
	}
}

// NormalizeClassificationSearch reports the first hit as the primary node and
// every further hit as a subclass. Without hits it returns a record titled
// NoClassificationResultsTitle instead of an error.
func NormalizeClassificationSearch(payload map[string]any, status int) ClassificationResponse {
	result := GetPath(envelope(payload), "ops:classification-search", "ops:search-result")
	hits := SliceAt(result, "ops:classification-statistics")

	if len(hits) == 0 {
		return ClassificationResponse{
			Status: status,
			Data: ClassificationNode{
				Class:       "",
				Title:       NoClassificationResultsTitle,
				Description: "",
				Subclasses:  []ClassificationSubclass{},
			},
		}
	}

	primary := classificationSubclass(hits[0])
	subclasses := make([]ClassificationSubclass, 0, len(hits)-1)
	for _, hit := range hits[1:] {
		subclasses = append(subclasses, classificationSubclass(hit))
	}
	return ClassificationResponse{
		Status: status,
		Data: ClassificationNode{
			Class:       primary.Code,
			Title:       primary.Title,
			Description: primary.Description,
			Subclasses:  subclasses,
		},
	}
}

// NormalizeNumberConversion reads the standardization result. Input fields the
// upstream omits are echoed from the request.
func NormalizeNumberConversion(payload map[string]any, input PatentReference, targetFormat string, status int) NumberConversionResponse {
	standardization := GetPath(envelope(payload), "ops:standardization")
	in := GetPath(standardization, "ops:input")
	if in == nil {
		in = GetPath(standardization, "input")
	}
	out := GetPath(standardization, "ops:output")
	if out == nil {
		out = GetPath(standardization, "output")
	}

	return NumberConversionResponse{
		Status: status,
		Data: NumberConversion{
			Input: NumberInput{
				Type:   firstNonEmpty(StringAt(in, "@type"), input.Kind),
				Format: firstNonEmpty(StringAt(in, "@format"), input.Format),
				Number: firstNonEmpty(referenceNumber(in), input.Number),
			},
			Output: NumberOutput{
				Format: firstNonEmpty(StringAt(out, "@format"), targetFormat),
				Number: referenceNumber(out),
			},
		},
	}
}

// referenceNumber reads a number either as the element text or from the
// document-id the element wraps.
func referenceNumber(node any) string {
	if text := StringAt(node); text != "" {
		return text
	}
	for _, key := range []string{"ops:application-reference", "ops:publication-reference", "ops:priority-claim"} {
		docID := First(GetPath(node, key, "document-id"))
		if docID == nil {
			continue
		}
		return StringAt(docID, "country") + StringAt(docID, "doc-number") + StringAt(docID, "kind")
	}
	return ""
}

func classificationSubclass(node any) ClassificationSubclass {
	return ClassificationSubclass{
		Code:        StringAtAny(node, "classification-symbol", "@classification-symbol"),
		Title:       firstNonEmpty(StringAt(node, "title-part"), StringAt(node, "class-title", "title-part")),
		Description: StringAt(node, "description-part"),
	}
}

func partyName(party any, key string) string {
	return firstNonEmpty(StringAt(party, key), StringAt(party, key, "name"))
}

func claimText(claim any) string {
	if text := StringAt(claim, TextKey); text != "" {
		return text
	}
	parts := []string{}
	for _, part := range SliceAt(claim, "claim-text") {
		if text := textOf(part); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
