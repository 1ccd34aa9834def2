package devkit

import (
	"encoding/json"
	"fmt"
)

// OPS response bodies in the JSON rendering of the upstream XML, used by the
// package tests across the module.

const SearchFixture = `{
  "ops:world-patent-data": {
    "ops:biblio-search": {
      "@total-result-count": "2",
      "ops:query": {"$": "computer", "@syntax": "CQL"},
      "ops:search-result": {
        "exchange-documents": [
          {
            "exchange-document": {
              "@country": "EP",
              "@doc-number": "1234567",
              "@kind": "A1",
              "bibliographic-data": {
                "invention-title": [
                  {"@lang": "de", "$": "Rechner"},
                  {"@lang": "en", "$": "Computer system"}
                ],
                "publication-reference": {
                  "document-id": {"@document-id-type": "docdb", "date": {"$": "20200101"}}
                }
              },
              "abstract": {"@lang": "en", "p": {"$": "A computing device."}}
            }
          },
          {
            "exchange-document": {
              "@country": "EP",
              "@doc-number": "7654321",
              "@kind": "B1",
              "bibliographic-data": {
                "invention-title": {"@lang": "en", "$": "Computer network"},
                "abstract": {"@lang": "en", "p": [{"$": "First."}, {"$": "Second."}]},
                "publication-reference": {
                  "document-id": {"date": {"$": "20210315"}}
                }
              }
            }
          }
        ]
      }
    }
  }
}`

const BibliographicFixture = `{
  "ops:world-patent-data": {
    "exchange-documents": {
      "exchange-document": {
        "@country": "EP",
        "@doc-number": "1000000",
        "@kind": "A1",
        "bibliographic-data": {
          "invention-title": {"@lang": "en", "$": "Apparatus for continuous separation"},
          "abstract": {"@lang": "en", "p": {"$": "A separation apparatus."}},
          "parties": {
            "applicants": {
              "applicant": [
                {"@sequence": "1", "applicant-name": {"name": {"$": "ACME CORP"}}},
                {"@sequence": "2", "applicant-name": {"name": {"$": "ACME CORP"}}}
              ]
            },
            "inventors": {
              "inventor": [
                {"@sequence": "1", "inventor-name": {"name": {"$": "DOE, Jane"}}},
                {"@sequence": "2", "inventor-name": {"name": {"$": "ROE, Richard"}}}
              ]
            }
          },
          "publication-reference": {"document-id": {"date": {"$": "20000816"}}},
          "application-reference": {"document-id": {"date": {"$": "19990101"}}},
          "priority-claims": {
            "priority-claim": [
              {"document-id": {"date": {"$": "19980101"}}},
              {"document-id": {"date": {"$": "19980601"}}}
            ]
          },
          "patent-classifications": {
            "patent-classification": [
              {"section": {"$": "B"}, "class": {"$": "01"}, "subclass": {"$": "D"}},
              {"section": {"$": "C"}, "class": {"$": "02"}, "subclass": {"$": "F"}}
            ]
          }
        }
      }
    }
  }
}`

const ClaimsFixture = `{
  "ops:world-patent-data": {
    "ops:document": {
      "claims": {
        "claim": [
          {"@type": "independent", "$": "1. A device comprising a processor."},
          {"@type": "dependent", "$": "2. The device of claim 1, wherein the processor is fast."},
          {"@type": "independent", "$": "3. A method of computing."}
        ]
      }
    }
  }
}`

const FamilyFixture = `{
  "ops:world-patent-data": {
    "ops:patent-family": {
      "@total-result-count": "2",
      "ops:family-member": [
        {
          "@family-id": "19768124",
          "publication-reference": {
            "document-id": [
              {"@document-id-type": "docdb", "country": {"$": "EP"}, "doc-number": {"$": "1000000"}, "kind": {"$": "A1"}, "date": {"$": "20000816"}},
              {"@document-id-type": "epodoc", "doc-number": {"$": "EP1000000"}, "date": {"$": "20000816"}}
            ]
          }
        },
        {
          "@family-id": "19768124",
          "publication-reference": {
            "document-id": {"@document-id-type": "docdb", "country": {"$": "US"}, "doc-number": {"$": "6682420"}, "kind": {"$": "B2"}, "date": {"$": "20040127"}}
          }
        }
      ]
    }
  }
}`

const LegalStatusFixture = `{
  "ops:world-patent-data": {
    "ops:legal-status-data": {
      "legal-status": [
        {
          "legal-event": {
            "code": {"$": "AK"},
            "date": {"$": "20000816"},
            "title": {"$": "Designated contracting states"},
            "country": {"$": "EP"}
          }
        },
        {
          "legal-event": [
            {"@code": "17P", "@desc": "Request for examination filed", "@date": "20001020", "@country": "EP"},
            {"code": {"$": "18D"}, "date": {"$": "20030102"}}
          ]
        }
      ]
    }
  }
}`

const ClassificationFixture = `{
  "ops:world-patent-data": {
    "ops:classification-data": {
      "classification-item": {
        "classification-symbol": {"$": "H04W"},
        "title-part": {"$": "Wireless communication networks"},
        "description-part": {"$": "Networks for wireless communication"},
        "child-items": [
          {"classification-symbol": {"$": "H04W4/00"}, "title-part": {"$": "Services specially adapted for wireless networks"}},
          {"classification-symbol": {"$": "H04W8/00"}, "title-part": {"$": "Network data management"}}
        ]
      }
    }
  }
}`

const ClassificationSearchFixture = `{
  "ops:world-patent-data": {
    "ops:classification-search": {
      "ops:search-result": {
        "@total-result-count": "2",
        "ops:classification-statistics": [
          {"@classification-symbol": "G06F", "class-title": {"title-part": {"$": "Electric digital data processing"}}},
          {"@classification-symbol": "G06N", "class-title": {"title-part": {"$": "Computing arrangements based on specific computational models"}}}
        ]
      }
    }
  }
}`

const ClassificationSearchEmptyFixture = `{
  "ops:world-patent-data": {
    "ops:classification-search": {
      "ops:search-result": {"@total-result-count": "0"}
    }
  }
}`

const NumberConversionFixture = `{
  "ops:world-patent-data": {
    "ops:standardization": {
      "ops:input": {"@type": "application", "@format": "docdb", "$": "EP.99203729.A"},
      "ops:output": {"@format": "epodoc", "$": "EP19990203729"}
    }
  }
}`

// TokenGrantFixture renders a token endpoint answer. OPS reports expires_in as
// a string.
func TokenGrantFixture(token string, expiresInSeconds int) string {
	body, _ := json.Marshal(map[string]any{
		"access_token":     token,
		"token_type":       "BearerToken",
		"expires_in":       fmt.Sprintf("%d", expiresInSeconds),
		"status":           "approved",
		"application_name": "devkit",
	})
	return string(body)
}
