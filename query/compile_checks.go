package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-epo-ops/core"
)

var (
	_ gocmd.Querier[SearchPatentsMessage, core.SearchResponse]                = (*SearchPatentsQuery)(nil)
	_ gocmd.Querier[GetBibliographicDataMessage, core.BibliographicData]      = (*GetBibliographicDataQuery)(nil)
	_ gocmd.Querier[GetClaimsMessage, core.Claims]                            = (*GetClaimsQuery)(nil)
	_ gocmd.Querier[GetFamilyMessage, []core.FamilyMember]                    = (*GetFamilyQuery)(nil)
	_ gocmd.Querier[GetLegalStatusMessage, []core.LegalStatus]                = (*GetLegalStatusQuery)(nil)
	_ gocmd.Querier[GetClassificationMessage, core.ClassificationResponse]    = (*GetClassificationQuery)(nil)
	_ gocmd.Querier[SearchClassificationMessage, core.ClassificationResponse] = (*SearchClassificationQuery)(nil)
	_ gocmd.Querier[ConvertNumberMessage, core.NumberConversionResponse]      = (*ConvertNumberQuery)(nil)
	_ PatentReader                                                            = (*core.Client)(nil)
	_ gocmd.Message                                                           = SearchPatentsMessage{}
)
