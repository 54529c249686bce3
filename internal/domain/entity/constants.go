package entity

// MissionType distinguishes the two request pipelines
type MissionType string

const (
	TypeViaticos   MissionType = "VIATICOS"
	TypeCajaMenuda MissionType = "CAJA_MENUDA"
)

// IsValid returns true for a known mission type
func (t MissionType) IsValid() bool {
	return t == TypeViaticos || t == TypeCajaMenuda
}

// BeneficiaryCategory drives per-diem rate lookup
type BeneficiaryCategory string

const (
	CategoryTitular         BeneficiaryCategory = "TITULAR"
	CategoryOtrosServidores BeneficiaryCategory = "OTROS_SERVIDORES_PUBLICOS"
	CategoryOtrasPersonas   BeneficiaryCategory = "OTRAS_PERSONAS"
)

// IsValid returns true for a known beneficiary category
func (c BeneficiaryCategory) IsValid() bool {
	switch c {
	case CategoryTitular, CategoryOtrosServidores, CategoryOtrasPersonas:
		return true
	}
	return false
}

// TransportType classifies transport segments
type TransportType string

const (
	TransportTerrestre TransportType = "TERRESTRE"
	TransportAereo     TransportType = "AEREO"
	TransportAcuatico  TransportType = "ACUATICO"
	TransportOficial   TransportType = "OFICIAL"
)

// IsValid returns true for a known transport type
func (t TransportType) IsValid() bool {
	switch t {
	case TransportTerrestre, TransportAereo, TransportAcuatico, TransportOficial:
		return true
	}
	return false
}

// PaymentMethod is recorded when a mission is paid
type PaymentMethod string

const (
	PaymentEfectivo      PaymentMethod = "EFECTIVO"
	PaymentTransferencia PaymentMethod = "TRANSFERENCIA"
	PaymentACH           PaymentMethod = "ACH"
)

// RequiresElectronicSignature reports whether the method needs the firma
// electrónica step before PAGADO
func (m PaymentMethod) RequiresElectronicSignature() bool {
	return m == PaymentTransferencia || m == PaymentACH
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentEfectivo, PaymentTransferencia, PaymentACH:
		return true
	}
	return false
}

// CollectionStatus is the lifecycle of a gestión de cobro record
type CollectionStatus string

const (
	CollectionPendiente  CollectionStatus = "PENDIENTE"
	CollectionEnProceso  CollectionStatus = "EN_PROCESO"
	CollectionCompletada CollectionStatus = "COMPLETADA"
	CollectionAnulada    CollectionStatus = "ANULADA"
)
