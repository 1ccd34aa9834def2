package query

import (
	"github.com/goliatone/go-epo-ops/core"
)

const (
	TypeSearchPatents        = "ops.query.patents.search"
	TypeGetBibliographicData = "ops.query.patents.biblio"
	TypeGetClaims            = "ops.query.patents.claims"
	TypeGetFamily            = "ops.query.patents.family"
	TypeGetLegalStatus       = "ops.query.patents.legal"
	TypeGetClassification    = "ops.query.classification.get"
	TypeSearchClassification = "ops.query.classification.search"
	TypeConvertNumber        = "ops.query.number.convert"
)

var validator core.Validator

type SearchPatentsMessage struct {
	Query   string
	Options core.SearchOptions
}

func (SearchPatentsMessage) Type() string { return TypeSearchPatents }

func (m SearchPatentsMessage) Validate() error {
	return validator.SearchInput(m.Query, m.Options)
}

type GetBibliographicDataMessage struct {
	Reference core.PatentReference
}

func (GetBibliographicDataMessage) Type() string { return TypeGetBibliographicData }

func (m GetBibliographicDataMessage) Validate() error {
	return validator.PatentReference(m.Reference)
}

type GetClaimsMessage struct {
	Reference core.PatentReference
}

func (GetClaimsMessage) Type() string { return TypeGetClaims }

func (m GetClaimsMessage) Validate() error {
	return validator.PatentReference(m.Reference)
}

type GetFamilyMessage struct {
	Reference core.PatentReference
}

func (GetFamilyMessage) Type() string { return TypeGetFamily }

func (m GetFamilyMessage) Validate() error {
	return validator.PatentReference(m.Reference)
}

type GetLegalStatusMessage struct {
	Reference core.PatentReference
}

func (GetLegalStatusMessage) Type() string { return TypeGetLegalStatus }

func (m GetLegalStatusMessage) Validate() error {
	return validator.PatentReference(m.Reference)
}

type GetClassificationMessage struct {
	Class   string
	Options core.ClassificationOptions
}

func (GetClassificationMessage) Type() string { return TypeGetClassification }

func (m GetClassificationMessage) Validate() error {
	return validator.ClassificationInput(m.Class, m.Options)
}

type SearchClassificationMessage struct {
	Query string
}

func (SearchClassificationMessage) Type() string { return TypeSearchClassification }

func (m SearchClassificationMessage) Validate() error {
	return validator.ClassificationSearchInput(m.Query)
}

type ConvertNumberMessage struct {
	Kind         string
	SourceFormat string
	Number       string
	TargetFormat string
}

func (ConvertNumberMessage) Type() string { return TypeConvertNumber }

func (m ConvertNumberMessage) Validate() error {
	return validator.NumberConversionInput(m.Kind, m.SourceFormat, m.Number, m.TargetFormat)
}
