package model

// Field names as they appear in the billing exports. The mixed casing is part
// of the source format and must be preserved for existing callers.
const (
	FieldEpisode       = "episodio"
	FieldInvoiceNumber = "nrO_FACTURA"
	FieldInvoiceDate   = "fechA_FACTURA"
	FieldHealthCenter  = "centrO_SANITARIO"
	FieldInsurer       = "aseguradora"
	FieldEpisodeClass  = "clasE_EPISODIO"
	FieldInvoiceStatus = "staT_FACTURA"
	FieldPatientName   = "noM_PACIENTE"
	FieldPatientAge    = "edaD_PACIENTE"
	FieldDuration      = "duracioN_MINUTOS"
	FieldTotalAmount   = "montO_TOTAL"
	FieldConsultAmount = "montO_CONSULTA"
	FieldDrugAmount    = "montO_MEDICAMENTOS"
	FieldExamAmount    = "montO_EXAMENES"
	FieldServices      = "prestaciones"

	FieldServiceName = "noM_PRESTACION"
	FieldServiceType = "tipO_PRESTACION"
	FieldNetAmount   = "valoR_NETO"

	// Derived columns added during flattening.
	FieldNetAmountNum = "valor_neto_num"
	FieldServiceCount = "n_prestaciones"
)

// FieldKind describes how a known field is treated during ingest.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindAmount // numeric or numeric-as-text, coerced with normalize.Amount
)

// KnownField describes one of the fields the analysis driver relies on.
type KnownField struct {
	Name  string
	Kind  FieldKind
	Label string
}

// EpisodeFields lists the episode-level fields in canonical order.
var EpisodeFields = []KnownField{
	{Name: FieldEpisode, Kind: KindText, Label: "Episodio"},
	{Name: FieldInvoiceNumber, Kind: KindText, Label: "Factura"},
	{Name: FieldInvoiceDate, Kind: KindText, Label: "Fecha factura"},
	{Name: FieldHealthCenter, Kind: KindText, Label: "Centro sanitario"},
	{Name: FieldInsurer, Kind: KindText, Label: "Aseguradora"},
	{Name: FieldEpisodeClass, Kind: KindText, Label: "Clase de episodio"},
	{Name: FieldInvoiceStatus, Kind: KindText, Label: "Estado de factura"},
	{Name: FieldPatientName, Kind: KindText, Label: "Paciente"},
	{Name: FieldPatientAge, Kind: KindNumber, Label: "Edad"},
	{Name: FieldDuration, Kind: KindNumber, Label: "Duración (min)"},
	{Name: FieldTotalAmount, Kind: KindAmount, Label: "Monto total"},
	{Name: FieldConsultAmount, Kind: KindAmount, Label: "Monto consulta"},
	{Name: FieldDrugAmount, Kind: KindAmount, Label: "Monto medicamentos"},
	{Name: FieldExamAmount, Kind: KindAmount, Label: "Monto exámenes"},
}

// ServiceFields lists the service-level fields in canonical order.
var ServiceFields = []KnownField{
	{Name: FieldServiceName, Kind: KindText, Label: "Prestación"},
	{Name: FieldServiceType, Kind: KindText, Label: "Tipo de prestación"},
	{Name: FieldNetAmount, Kind: KindAmount, Label: "Valor neto"},
}

// DefaultNumericColumns are the episode columns analyzed when no explicit
// list is configured.
var DefaultNumericColumns = []string{
	FieldTotalAmount,
	FieldConsultAmount,
	FieldDrugAmount,
	FieldExamAmount,
	FieldPatientAge,
	FieldDuration,
}

// DefaultImputeColumns are the sparse amount columns filled before the
// descriptive summary.
var DefaultImputeColumns = []string{FieldDrugAmount, FieldExamAmount}

// DefaultGroupColumns are the categorical columns used for group comparisons.
var DefaultGroupColumns = []string{FieldEpisodeClass, FieldInvoiceStatus}

// FieldByName returns the KnownField for name, or ok=false.
func FieldByName(name string) (KnownField, bool) {
	for _, f := range EpisodeFields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range ServiceFields {
		if f.Name == name {
			return f, true
		}
	}
	return KnownField{}, false
}
