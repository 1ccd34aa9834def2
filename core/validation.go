package core

import (
	"fmt"
	"regexp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var (
	rangePattern = regexp.MustCompile(`^\d+-\d+$`)
	datePattern  = regexp.MustCompile(`^\d{8}$`)
)

// violations collects every rule a value breaks before it is reported as a
// single validation error.
type violations struct {
	fields []goerrors.FieldError
}

func (v *violations) add(field string, format string, args ...any) {
	v.fields = append(v.fields, goerrors.FieldError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *violations) required(field string, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}

func (v *violations) oneOf(field string, value string, allowed []string) {
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	v.add(field, "must be one of %s, got %q", strings.Join(allowed, "|"), value)
}

func (v *violations) date(field string, value string) {
	if value != "" && !datePattern.MatchString(value) {
		v.add(field, "must be a YYYYMMDD date, got %q", value)
	}
}

func (v *violations) present(field string, isNil bool) {
	if isNil {
		v.add(field, "must be a list")
	}
}

func (v *violations) err(message string, normalized any) error {
	if len(v.fields) == 0 {
		return nil
	}
	err := NewValidationError(message, v.fields...)
	if normalized != nil {
		err.WithMetadata(map[string]any{"normalized": normalized})
	}
	return err
}

// Validator checks caller input before a request is sent and normalized
// records before they are returned. Every violation is reported, not only the
// first one.
type Validator struct{}

func (Validator) PatentReference(ref PatentReference) error {
	v := &violations{}
	validateReference(v, "", ref)
	return v.err("ops: invalid patent reference", nil)
}

func (Validator) SearchInput(query string, options SearchOptions) error {
	v := &violations{}
	v.required("query", query)
	validateSearchOptions(v, options)
	return v.err("ops: invalid search request", nil)
}

func (Validator) ClassificationInput(class string, options ClassificationOptions) error {
	v := &violations{}
	v.required("class", class)
	if options.Depth != "" {
		v.oneOf("depth", options.Depth, ClassificationDepths)
	}
	return v.err("ops: invalid classification request", nil)
}

func (Validator) ClassificationSearchInput(query string) error {
	v := &violations{}
	v.required("query", query)
	return v.err("ops: invalid classification search request", nil)
}

func (Validator) NumberConversionInput(kind, sourceFormat, number, targetFormat string) error {
	v := &violations{}
	v.oneOf("kind", kind, ReferenceKinds)
	v.oneOf("sourceFormat", sourceFormat, NumberFormats)
	v.required("number", number)
	v.oneOf("targetFormat", targetFormat, NumberFormats)
	return v.err("ops: invalid number conversion request", nil)
}

func (Validator) SearchResponse(res SearchResponse) error {
	v := &violations{}
	if res.Data.Total < 0 {
		v.add("data.total", "must not be negative")
	}
	v.present("data.results", res.Data.Results == nil)
	for i, result := range res.Data.Results {
		prefix := fmt.Sprintf("data.results[%d].", i)
		v.required(prefix+"id", result.ID)
		v.date(prefix+"publicationDate", result.PublicationDate)
	}
	return v.err("ops: invalid search response", res)
}

func (Validator) BibliographicData(data BibliographicData) error {
	v := &violations{}
	v.present("inventors", data.Inventors == nil)
	v.present("applicants", data.Applicants == nil)
	v.present("classification", data.Classification == nil)
	v.date("publicationDate", data.PublicationDate)
	v.date("applicationDate", data.ApplicationDate)
	v.date("priorityDate", data.PriorityDate)
	return v.err("ops: invalid bibliographic data", data)
}

func (Validator) Claims(claims Claims) error {
	v := &violations{}
	v.present("independent", claims.Independent == nil)
	v.present("dependent", claims.Dependent == nil)
	return v.err("ops: invalid claims", claims)
}

func (Validator) Family(members []FamilyMember) error {
	v := &violations{}
	v.present("members", members == nil)
	for i, member := range members {
		prefix := fmt.Sprintf("members[%d].", i)
		v.required(prefix+"publicationNumber", member.PublicationNumber)
		v.date(prefix+"publicationDate", member.PublicationDate)
	}
	return v.err("ops: invalid family", members)
}

func (Validator) LegalStatus(statuses []LegalStatus) error {
	v := &violations{}
	v.present("events", statuses == nil)
	for i, status := range statuses {
		prefix := fmt.Sprintf("events[%d].", i)
		v.required(prefix+"status", status.Status)
		v.date(prefix+"date", status.Date)
	}
	return v.err("ops: invalid legal status", statuses)
}

func (Validator) Classification(res ClassificationResponse) error {
	v := &violations{}
	node := res.Data
	if node.Title != NoClassificationResultsTitle {
		v.required("data.class", node.Class)
	}
	v.present("data.subclasses", node.Subclasses == nil)
	for i, subclass := range node.Subclasses {
		v.required(fmt.Sprintf("data.subclasses[%d].code", i), subclass.Code)
	}
	return v.err("ops: invalid classification", res)
}

func (Validator) NumberConversion(res NumberConversionResponse) error {
	v := &violations{}
	v.oneOf("data.input.type", res.Data.Input.Type, ReferenceKinds)
	v.oneOf("data.input.format", res.Data.Input.Format, NumberFormats)
	v.required("data.input.number", res.Data.Input.Number)
	v.oneOf("data.output.format", res.Data.Output.Format, NumberFormats)
	v.required("data.output.number", res.Data.Output.Number)
	return v.err("ops: invalid number conversion", res)
}

func validateReference(v *violations, prefix string, ref PatentReference) {
	v.oneOf(prefix+"kind", ref.Kind, ReferenceKinds)
	v.oneOf(prefix+"format", ref.Format, NumberFormats)
	v.required(prefix+"number", ref.Number)
}

func validateSearchOptions(v *violations, options SearchOptions) {
	if options.Range != "" && !rangePattern.MatchString(options.Range) {
		v.add("range", "must look like 1-25, got %q", options.Range)
	}
	if options.Constituent != "" {
		v.oneOf("constituent", options.Constituent, SearchConstituents)
	}
}
