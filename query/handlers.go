package query

import (
	"context"

	"github.com/goliatone/go-epo-ops/core"
)

type PatentSearcher interface {
	SearchPatents(ctx context.Context, query string, options core.SearchOptions, callOpts ...core.CallOption) (core.SearchResponse, error)
}

// DocumentReader fetches the per-publication views.
type DocumentReader interface {
	GetBibliographicData(ctx context.Context, ref core.PatentReference, callOpts ...core.CallOption) (core.BibliographicData, error)
	GetClaims(ctx context.Context, ref core.PatentReference, callOpts ...core.CallOption) (core.Claims, error)
	GetFamily(ctx context.Context, ref core.PatentReference, callOpts ...core.CallOption) ([]core.FamilyMember, error)
	GetLegalStatus(ctx context.Context, ref core.PatentReference, callOpts ...core.CallOption) ([]core.LegalStatus, error)
}

type ClassificationReader interface {
	GetClassification(ctx context.Context, class string, options core.ClassificationOptions, callOpts ...core.CallOption) (core.ClassificationResponse, error)
	SearchClassification(ctx context.Context, query string, callOpts ...core.CallOption) (core.ClassificationResponse, error)
}

type NumberConverter interface {
	ConvertNumber(ctx context.Context, kind, sourceFormat, number, targetFormat string, callOpts ...core.CallOption) (core.NumberConversionResponse, error)
}

// PatentReader is the full read surface of the client.
type PatentReader interface {
	PatentSearcher
	DocumentReader
	ClassificationReader
	NumberConverter
}

type SearchPatentsQuery struct {
	reader PatentSearcher
}

func NewSearchPatentsQuery(reader PatentSearcher) *SearchPatentsQuery {
	return &SearchPatentsQuery{reader: reader}
}

func (q *SearchPatentsQuery) Query(ctx context.Context, msg SearchPatentsMessage) (core.SearchResponse, error) {
	if q == nil || q.reader == nil {
		return core.SearchResponse{}, queryDependencyError("query: patent searcher is required")
	}
	return q.reader.SearchPatents(ctx, msg.Query, msg.Options)
}

type GetBibliographicDataQuery struct {
	reader DocumentReader
}

func NewGetBibliographicDataQuery(reader DocumentReader) *GetBibliographicDataQuery {
	return &GetBibliographicDataQuery{reader: reader}
}

func (q *GetBibliographicDataQuery) Query(ctx context.Context, msg GetBibliographicDataMessage) (core.BibliographicData, error) {
	if q == nil || q.reader == nil {
		return core.BibliographicData{}, queryDependencyError("query: document reader is required")
	}
	return q.reader.GetBibliographicData(ctx, msg.Reference)
}

type GetClaimsQuery struct {
	reader DocumentReader
}

func NewGetClaimsQuery(reader DocumentReader) *GetClaimsQuery {
	return &GetClaimsQuery{reader: reader}
}

func (q *GetClaimsQuery) Query(ctx context.Context, msg GetClaimsMessage) (core.Claims, error) {
	if q == nil || q.reader == nil {
		return core.Claims{}, queryDependencyError("query: document reader is required")
	}
	return q.reader.GetClaims(ctx, msg.Reference)
}

type GetFamilyQuery struct {
	reader DocumentReader
}

func NewGetFamilyQuery(reader DocumentReader) *GetFamilyQuery {
	return &GetFamilyQuery{reader: reader}
}

func (q *GetFamilyQuery) Query(ctx context.Context, msg GetFamilyMessage) ([]core.FamilyMember, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: document reader is required")
	}
	return q.reader.GetFamily(ctx, msg.Reference)
}

type GetLegalStatusQuery struct {
	reader DocumentReader
}

func NewGetLegalStatusQuery(reader DocumentReader) *GetLegalStatusQuery {
	return &GetLegalStatusQuery{reader: reader}
}

func (q *GetLegalStatusQuery) Query(ctx context.Context, msg GetLegalStatusMessage) ([]core.LegalStatus, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: document reader is required")
	}
	return q.reader.GetLegalStatus(ctx, msg.Reference)
}

type GetClassificationQuery struct {
	reader ClassificationReader
}

func NewGetClassificationQuery(reader ClassificationReader) *GetClassificationQuery {
	return &GetClassificationQuery{reader: reader}
}

func (q *GetClassificationQuery) Query(ctx context.Context, msg GetClassificationMessage) (core.ClassificationResponse, error) {
	if q == nil || q.reader == nil {
		return core.ClassificationResponse{}, queryDependencyError("query: classification reader is required")
	}
	return q.reader.GetClassification(ctx, msg.Class, msg.Options)
}

type SearchClassificationQuery struct {
	reader ClassificationReader
}

func NewSearchClassificationQuery(reader ClassificationReader) *SearchClassificationQuery {
	return &SearchClassificationQuery{reader: reader}
}

func (q *SearchClassificationQuery) Query(ctx context.Context, msg SearchClassificationMessage) (core.ClassificationResponse, error) {
	if q == nil || q.reader == nil {
		return core.ClassificationResponse{}, queryDependencyError("query: classification reader is required")
	}
	return q.reader.SearchClassification(ctx, msg.Query)
}

type ConvertNumberQuery struct {
	reader NumberConverter
}

func NewConvertNumberQuery(reader NumberConverter) *ConvertNumberQuery {
	return &ConvertNumberQuery{reader: reader}
}

func (q *ConvertNumberQuery) Query(ctx context.Context, msg ConvertNumberMessage) (core.NumberConversionResponse, error) {
	if q == nil || q.reader == nil {
		return core.NumberConversionResponse{}, queryDependencyError("query: number converter is required")
	}
	return q.reader.ConvertNumber(ctx, msg.Kind, msg.SourceFormat, msg.Number, msg.TargetFormat)
}

// Queries bundles one querier per client operation.
type Queries struct {
	SearchPatents        *SearchPatentsQuery
	GetBibliographicData *GetBibliographicDataQuery
	GetClaims            *GetClaimsQuery
	GetFamily            *GetFamilyQuery
	GetLegalStatus       *GetLegalStatusQuery
	GetClassification    *GetClassificationQuery
	SearchClassification *SearchClassificationQuery
	ConvertNumber        *ConvertNumberQuery
}

func NewQueries(reader PatentReader) Queries {
	return Queries{
		SearchPatents:        NewSearchPatentsQuery(reader),
		GetBibliographicData: NewGetBibliographicDataQuery(reader),
		GetClaims:            NewGetClaimsQuery(reader),
		GetFamily:            NewGetFamilyQuery(reader),
		GetLegalStatus:       NewGetLegalStatusQuery(reader),
		GetClassification:    NewGetClassificationQuery(reader),
		SearchClassification: NewSearchClassificationQuery(reader),
		ConvertNumber:        NewConvertNumberQuery(reader),
	}
}
