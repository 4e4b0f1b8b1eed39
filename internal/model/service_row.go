package model

// ServiceRow is the typed, columnar representation of one flattened service
// line, used for Parquet export. Text columns hold the source value rendered
// as text; amounts are float64 after coercion.
type ServiceRow struct {
	Episode       *string `parquet:"episodio,optional"`
	InvoiceNumber *string `parquet:"nro_factura,optional"`
	InvoiceDate   *string `parquet:"fecha_factura,optional"`
	HealthCenter  *string `parquet:"centro_sanitario,optional"`
	Insurer       *string `parquet:"aseguradora,optional"`
	EpisodeClass  *string `parquet:"clase_episodio,optional"`
	InvoiceStatus *string `parquet:"stat_factura,optional"`

	PatientAge  *float64 `parquet:"edad_paciente,optional"`
	Duration    *float64 `parquet:"duracion_minutos,optional"`
	TotalAmount *float64 `parquet:"monto_total,optional"`

	ServiceName  *string  `parquet:"nom_prestacion,optional"`
	ServiceType  *string  `parquet:"tipo_prestacion,optional"`
	NetAmountRaw *string  `parquet:"valor_neto,optional"`
	NetAmount    *float64 `parquet:"valor_neto_num,optional"`
}

// TextColumns maps table column names to ServiceRow text setters.
func (r *ServiceRow) TextColumns() map[string]**string {
	return map[string]**string{
		FieldEpisode:       &r.Episode,
		FieldInvoiceNumber: &r.InvoiceNumber,
		FieldInvoiceDate:   &r.InvoiceDate,
		FieldHealthCenter:  &r.HealthCenter,
		FieldInsurer:       &r.Insurer,
		FieldEpisodeClass:  &r.EpisodeClass,
		FieldInvoiceStatus: &r.InvoiceStatus,
		FieldServiceName:   &r.ServiceName,
		FieldServiceType:   &r.ServiceType,
		FieldNetAmount:     &r.NetAmountRaw,
	}
}

// NumberColumns maps table column names to ServiceRow numeric setters.
func (r *ServiceRow) NumberColumns() map[string]**float64 {
	return map[string]**float64{
		FieldPatientAge:   &r.PatientAge,
		FieldDuration:     &r.Duration,
		FieldTotalAmount:  &r.TotalAmount,
		FieldNetAmountNum: &r.NetAmount,
	}
}
