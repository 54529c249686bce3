package workflow

// State represents a workflow state in the mission approval lifecycle
type State string

const (
	StateBorrador              State = "BORRADOR"
	StatePendienteJefe         State = "PENDIENTE_JEFE"
	StatePendienteTesoreria    State = "PENDIENTE_REVISION_TESORERIA"
	StatePendientePresupuesto  State = "PENDIENTE_ASIGNACION_PRESUPUESTO"
	StatePendienteContabilidad State = "PENDIENTE_CONTABILIDAD"
	StatePendienteFinanzas     State = "PENDIENTE_APROBACION_FINANZAS"
	StatePendienteRefrendoCGR  State = "PENDIENTE_REFRENDO_CGR"
	StateAprobadoParaPago      State = "APROBADO_PARA_PAGO"
	StateOrdenPagoGenerada     State = "ORDEN_PAGO_GENERADA"
	StatePendienteFirma        State = "PENDIENTE_FIRMA_ELECTRONICA"
	StatePagado                State = "PAGADO"
	StateDevueltoCorreccion    State = "DEVUELTO_CORRECCION"
	StateRechazado             State = "RECHAZADO"
	StateCancelado             State = "CANCELADO"
)

var validStates = map[State]bool{
	StateBorrador:              true,
	StatePendienteJefe:         true,
	StatePendienteTesoreria:    true,
	StatePendientePresupuesto:  true,
	StatePendienteContabilidad: true,
	StatePendienteFinanzas:     true,
	StatePendienteRefrendoCGR:  true,
	StateAprobadoParaPago:      true,
	StateOrdenPagoGenerada:     true,
	StatePendienteFirma:        true,
	StatePagado:                true,
	StateDevueltoCorreccion:    true,
	StateRechazado:             true,
	StateCancelado:             true,
}

var terminalStates = map[State]bool{
	StatePagado:    true,
	StateRechazado: true,
	StateCancelado: true,
}

// editableStates are the states in which the solicitante may still modify
// line items and in which amounts may be recomputed.
var editableStates = map[State]bool{
	StateBorrador:           true,
	StateDevueltoCorreccion: true,
}

// IsTerminal returns true if the state has no outbound transitions
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsEditable returns true if line items may still change in this state
func (s State) IsEditable() bool {
	return editableStates[s]
}

// IsValid returns true if the state is a known workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// AllStates returns every workflow state, in flow order
func AllStates() []State {
	return []State{
		StateBorrador,
		StatePendienteJefe,
		StatePendienteTesoreria,
		StatePendientePresupuesto,
		StatePendienteContabilidad,
		StatePendienteFinanzas,
		StatePendienteRefrendoCGR,
		StateAprobadoParaPago,
		StateOrdenPagoGenerada,
		StatePendienteFirma,
		StatePagado,
		StateDevueltoCorreccion,
		StateRechazado,
		StateCancelado,
	}
}
