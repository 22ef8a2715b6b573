package index

import (
	"strings"
	"time"
)

// Status is the download workflow state of an index row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Source identifies which ingestion path produced a row.
type Source string

const (
	SourceDuProcess  Source = "DuProcess"
	SourceHistorical Source = "Historical"
)

// DocumentType is the closed taxonomy of recorded-document types.
// UNKNOWN is the catch-all for unmapped instrument types.
type DocumentType string

const (
	// CONVEYANCE
	TypeDeed                DocumentType = "DEED"
	TypeQuitclaimDeed       DocumentType = "QUITCLAIM_DEED"
	TypeTrusteesDeed        DocumentType = "TRUSTEES_DEED"
	TypeTaxDeed             DocumentType = "TAX_DEED"
	TypeTransferOnDeathDeed DocumentType = "TRANSFER_ON_DEATH_DEED"
	TypePatent              DocumentType = "PATENT"
	TypeLease               DocumentType = "LEASE"
	TypeMineralDeed         DocumentType = "MINERAL_DEED"
	TypeRoyaltyDeed         DocumentType = "ROYALTY_DEED"

	// SECURITY
	TypeDeedOfTrust DocumentType = "DEED_OF_TRUST"
	TypeMortgage    DocumentType = "MORTGAGE"
	TypeVendorsLien DocumentType = "VENDORS_LIEN"

	// SERVITUDES
	TypeEasement           DocumentType = "EASEMENT"
	TypeRightOfWay         DocumentType = "RIGHT_OF_WAY"
	TypeProtectiveCovenant DocumentType = "PROTECTIVE_COVENANT"
	TypeDeedRestrictions   DocumentType = "DEED_RESTRICTIONS"

	// INVOLUNTARY LIENS
	TypeConstructionLien  DocumentType = "CONSTRUCTION_LIEN"
	TypeFederalTaxLien    DocumentType = "FEDERAL_TAX_LIEN"
	TypeTaxSale           DocumentType = "TAX_SALE"
	TypeAssessmentLien    DocumentType = "ASSESSMENT_LIEN"
	TypeJudgment          DocumentType = "JUDGMENT"
	TypeLisPendens        DocumentType = "LIS_PENDENS"
	TypeUCC               DocumentType = "UCC"
	TypeUCCContinuation   DocumentType = "UCC_CONTINUATION"
	TypeUCCTermination    DocumentType = "UCC_TERMINATION"
	TypeUCCAmendment      DocumentType = "UCC_AMENDMENT"
	TypeUCCPartialRelease DocumentType = "UCC_PARTIAL_RELEASE"
	TypeCondominiumLien   DocumentType = "CONDOMINIUM_LIEN"

	// CHANGE
	TypeRelease               DocumentType = "RELEASE"
	TypePartialRelease        DocumentType = "PARTIAL_RELEASE"
	TypeAssignment            DocumentType = "ASSIGNMENT"
	TypeModificationAgreement DocumentType = "MODIFICATION_AGREEMENT"
	TypeSubordination         DocumentType = "SUBORDINATION"
	TypeSubstitutionOfTrustee DocumentType = "SUBSTITUTION_OF_TRUSTEE"
	TypeSupplement            DocumentType = "SUPPLEMENT"
	TypeAmendment             DocumentType = "AMENDMENT"
	TypeCancellation          DocumentType = "CANCELLATION"
	TypeTaxRelease            DocumentType = "TAX_RELEASE"

	// OTHER
	TypePowerOfAttorney      DocumentType = "POWER_OF_ATTORNEY"
	TypeAffidavit            DocumentType = "AFFIDAVIT"
	TypeAgreement            DocumentType = "AGREEMENT"
	TypeTrustAgreement       DocumentType = "TRUST_AGREEMENT"
	TypePlat                 DocumentType = "PLAT"
	TypeSubdivisionPlat      DocumentType = "SUBDIVISION_PLAT"
	TypeLastWillAndTestament DocumentType = "LAST_WILL_AND_TESTAMENT"
	TypeHeirship             DocumentType = "HEIRSHIP"
	TypeDisclaimer           DocumentType = "DISCLAIMER"
	TypeNotice               DocumentType = "NOTICE"
	TypeCertification        DocumentType = "CERTIFICATION"
	TypeDeclaration          DocumentType = "DECLARATION"

	// OIL, GAS & MINERAL
	TypeOilGasLease          DocumentType = "OIL_GAS_LEASE"
	TypePoolingAgreement     DocumentType = "POOLING_AGREEMENT"
	TypeUnitizationAgreement DocumentType = "UNITIZATION_AGREEMENT"
	TypeDivisionOrder        DocumentType = "DIVISION_ORDER"

	TypeUnknown DocumentType = "UNKNOWN"
)

// duProcessTypeMapping maps DuProcess instrument-type text (uppercased,
// truncated at 20 chars by the source system) to the closed taxonomy.
var duProcessTypeMapping = map[string]DocumentType{
	"DEED OF TRUST":        TypeDeedOfTrust,
	"POWER OF ATTORNEY":    TypePowerOfAttorney,
	"DEED":                 TypeDeed,
	"TAX RELEASE":          TypeTaxRelease,
	"ASSIGNMENT OF DEED O": TypeAssignment,
	"UCC (CONVERTED)":      TypeUCC,
	"TAX SALE":             TypeTaxSale,
	"PARTIAL RELEASE":      TypePartialRelease,
	"UCC TERM":             TypeUCCTermination,
	"ASSESSMENT LIEN":      TypeAssessmentLien,
	"RIGHT OF WAY":         TypeRightOfWay,
	"MODIFICATION AGREEME": TypeModificationAgreement,
	"OIL GAS MINERAL LEAS": TypeOilGasLease,
	"SUBSTITUTE TRUSTEE":   TypeSubstitutionOfTrustee,
	"EASEMENT":             TypeEasement,
	"FEDERAL TAX LIEN":     TypeFederalTaxLien,
	"LEASE ASSIGNMENT":     TypeAssignment,
	"SUBORDINATION":        TypeSubordination,
	"AFFIDAVIT":            TypeAffidavit,
	"TRUSTEES DEED":        TypeTrusteesDeed,
	"CONSTRUCTION LIEN":    TypeConstructionLien,
	"SUBDIVISION PLATS":    TypeSubdivisionPlat,
	"JUDGMENT OR ORDER":    TypeJudgment,
	"LIS PENDENS":          TypeLisPendens,
	"UCC CONT":             TypeUCCContinuation,
	"UCC ASGN":             TypeAssignment,
	"MINERAL DEED":         TypeMineralDeed,
	"PROTECTIVE COVENANT":  TypeProtectiveCovenant,
	"PATENT":               TypePatent,
	"TRANSFER ON DEATH DE": TypeTransferOnDeathDeed,
	"AFFIDAVIT OF HEIRSHI": TypeHeirship,
	"QUITCLAIM DEED":       TypeQuitclaimDeed,
	"TAX DEED":             TypeTaxDeed,
	"LAST WILL AND TESTAM": TypeLastWillAndTestament,
	"DEED RESTRICTIONS":    TypeDeedRestrictions,
	"UCC PART":             TypeUCCPartialRelease,
	"DECLARATION":          TypeDeclaration,
	"ROYALTY DEED":         TypeRoyaltyDeed,
	"CONDOMINIUM LIEN":     TypeCondominiumLien,
	"PLATS":                TypePlat,
	"VENDORS LIEN":         TypeVendorsLien,
	"UCC AMND":             TypeUCCAmendment,
	"TIMBER DEED":          TypeDeed,
	"CORRECTIVE DEED":      TypeDeed,
	"AGREEMENT":            TypeAgreement,
	"CANCELLATION":         TypeCancellation,
	"SUPPLEMENT":           TypeSupplement,
	"POOLING AGREEMENT":    TypePoolingAgreement,
	"AMENDMENT":            TypeAmendment,
	"DISCLAIMER":           TypeDisclaimer,
	"NOTICE":               TypeNotice,
	"LEASE":                TypeLease,
	"TIMBER LEASE":         TypeLease,
	"TRUST AGREEMENT":      TypeTrustAgreement,
	"COURT ORDER":          TypeJudgment,
	"MINERAL LEASE":        TypeOilGasLease,
	"UNITIZATION AGREEMEN": TypeUnitizationAgreement,
	"DIVISION ORDER":       TypeDivisionOrder,
	"CERTIFICATION":        TypeCertification,
	"WILL":                 TypeLastWillAndTestament,
	"WARRANTY DEED":        TypeDeed,
	"SPECIAL WARRANTY DEE": TypeDeed,
	"LIMITED WARRANTY DEE": TypeDeed,
	"HEIRSHIP":             TypeHeirship,
	"MORTGAGE":             TypeMortgage,
	"SHERIFF'S DEED":       TypeDeed,
	"RELEASE DEED OF TRUS": TypeRelease,
	"RELEASE":              TypeRelease,
	"SATISFACTION":         TypeRelease,
}

// ParseInstrumentType splits a DuProcess InstrumentType value of the form
// "INSTRUMENT_NAME - [BOOK_TYPE CODE]" into the uppercased text before the
// first " - " and the mapped DocumentType.
func ParseInstrumentType(raw string) (parsed string, docType DocumentType) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", TypeUnknown
	}
	parsed = raw
	if i := strings.Index(raw, " - "); i >= 0 {
		parsed = raw[:i]
	}
	parsed = strings.ToUpper(strings.TrimSpace(parsed))
	if dt, ok := duProcessTypeMapping[parsed]; ok {
		return parsed, dt
	}
	return parsed, TypeUnknown
}

// RelatedItem is a structured cross-reference parsed from related_items_raw.
type RelatedItem struct {
	InstrumentNumber int64  `json:"instrument_number"`
	Book             int    `json:"book"`
	Page             int    `json:"page"`
	ExistsInDB       bool   `json:"exists_in_db"`
	TargetID         *int64 `json:"target_id"`
}

// Document is one row of the index_documents table: a single recorded
// document tracked through the download workflow.
type Document struct {
	ID         int64
	Source     Source
	SourceFile *string

	// Record locators
	GIN              *int64
	InstrumentNumber *int64
	BookVolume       *string
	Book             *int
	Page             *int

	// Classification
	InstrumentTypeRaw    *string
	InstrumentTypeParsed *string
	DocumentType         *DocumentType

	// Recording metadata
	FileDate       *time.Time
	NumPages       *int
	PartyType      *string
	PartySeq       *int
	SearchedName   *string
	CrossPartyName *string
	GrantorParty   *string
	GranteeParty   *string

	// Legal description
	Description *string
	Location    *string
	Direction   *string
	Legals      *string
	SubDiv      *string
	Block       *string
	Lot         *string
	Sec         *int
	Town        *string
	Rng         *string
	Square      *string
	Remarks     *string

	// Quarter-section flags
	QuarterSections QuarterSections

	// Modern identifiers
	Address    *string
	StreetName *string
	City       *string
	Zip        *string
	ParcelNum  *string
	ParcelID   *string
	PPIN       *string
	PatentNum  *string

	// Workflow
	DownloadStatus   Status
	DownloadPriority *int
	DownloadAttempts int
	DownloadError    *string
	DownloadedAt     *time.Time
	UpdatedAt        time.Time
	ImportDate       time.Time
	GCSPath          *string
	ActualBook       *int
	ActualPage       *int
	BookPageMismatch bool

	// Cross-references
	RelatedItemsRaw *string
	RelatedItems    []RelatedItem
}

// QuarterSections holds the sixteen quarter-quarter flags of a legal
// description, in PLSS order.
type QuarterSections struct {
	NEofNE, NWofNE, SWofNE, SEofNE bool
	NEofNW, NWofNW, SWofNW, SEofNW bool
	NEofSW, NWofSW, SWofSW, SEofSW bool
	NEofSE, NWofSE, SWofSE, SEofSE bool
}

// IsWill reports whether a row's classification indicates a will or
// testament. Such rows get priority 1.
func (d *Document) IsWill() bool {
	if d.DocumentType != nil && *d.DocumentType == TypeLastWillAndTestament {
		return true
	}
	if d.InstrumentTypeParsed != nil {
		up := strings.ToUpper(*d.InstrumentTypeParsed)
		if strings.Contains(up, "WILL") || strings.Contains(up, "TESTAMENT") {
			return true
		}
	}
	return false
}

// DocType returns the row's document type, or UNKNOWN when unset.
func (d *Document) DocType() DocumentType {
	if d.DocumentType == nil || *d.DocumentType == "" {
		return TypeUnknown
	}
	return *d.DocumentType
}
