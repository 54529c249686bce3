package workflow

// Action represents an event that can cause a state transition
type Action string

const (
	ActionEnviar         Action = "ENVIAR"
	ActionAprobar        Action = "APROBAR"
	ActionAprobarDirecto Action = "APROBAR_DIRECTO"
	ActionRechazar       Action = "RECHAZAR"
	ActionDevolver       Action = "DEVOLVER"
	ActionCancelar       Action = "CANCELAR"
	ActionGenerarOrden   Action = "GENERAR_ORDEN"
	ActionProcesarPago   Action = "PROCESAR_PAGO"
	ActionConfirmarPago  Action = "CONFIRMAR_PAGO"
)

var validActions = map[Action]bool{
	ActionEnviar:         true,
	ActionAprobar:        true,
	ActionAprobarDirecto: true,
	ActionRechazar:       true,
	ActionDevolver:       true,
	ActionCancelar:       true,
	ActionGenerarOrden:   true,
	ActionProcesarPago:   true,
	ActionConfirmarPago:  true,
}

// RequiresComment reports whether the action must carry a non-empty comment.
// RECHAZAR and DEVOLVER always need a stated reason.
func (a Action) RequiresComment() bool {
	return a == ActionRechazar || a == ActionDevolver
}

// IsValid returns true if the action is a known workflow action
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// AllActions returns every workflow action
func AllActions() []Action {
	return []Action{
		ActionEnviar,
		ActionAprobar,
		ActionAprobarDirecto,
		ActionRechazar,
		ActionDevolver,
		ActionCancelar,
		ActionGenerarOrden,
		ActionProcesarPago,
		ActionConfirmarPago,
	}
}
