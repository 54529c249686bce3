package workflow

import (
	domainwf "github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

// BuildMissionStateMachine creates a state machine configured for the
// travel-expense and petty-cash approval workflow. Guards read the
// TransitionContext supplied at resolution time; the topology itself is
// identical for every mission.
func BuildMissionStateMachine(initialState domainwf.State) *domainwf.Machine {
	builder := domainwf.NewBuilder()

	// BORRADOR state transitions
	builder.Configure(domainwf.StateBorrador).
		Permit(domainwf.ActionEnviar, domainwf.StatePendienteJefe,
			domainwf.RoleSolicitante, domainwf.RoleAdministrador).
		Permit(domainwf.ActionCancelar, domainwf.StateCancelado,
			domainwf.RoleSolicitante, domainwf.RoleAdministrador)

	// DEVUELTO_CORRECCION behaves like a draft for the requester
	builder.Configure(domainwf.StateDevueltoCorreccion).
		Permit(domainwf.ActionEnviar, domainwf.StatePendienteJefe,
			domainwf.RoleSolicitante, domainwf.RoleAdministrador).
		Permit(domainwf.ActionCancelar, domainwf.StateCancelado,
			domainwf.RoleSolicitante, domainwf.RoleAdministrador)

	// PENDIENTE_JEFE state transitions. Petty-cash requests skip the
	// treasury review chain and land directly in the payable queue.
	builder.Configure(domainwf.StatePendienteJefe).
		PermitIf(domainwf.ActionAprobar, domainwf.StatePendienteTesoreria, isViaticos,
			domainwf.RoleJefeInmediato, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionAprobar, domainwf.StateAprobadoParaPago, isCajaMenuda,
			domainwf.RoleJefeInmediato, domainwf.RoleAdministrador).
		Permit(domainwf.ActionAprobarDirecto, domainwf.StateAprobadoParaPago,
			domainwf.RoleJefeInmediato, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleJefeInmediato, domainwf.RoleAdministrador).
		Permit(domainwf.ActionDevolver, domainwf.StateDevueltoCorreccion,
			domainwf.RoleJefeInmediato, domainwf.RoleAdministrador)

	// PENDIENTE_REVISION_TESORERIA state transitions
	builder.Configure(domainwf.StatePendienteTesoreria).
		PermitIf(domainwf.ActionAprobar, domainwf.StateAprobadoParaPago, isCajaMenuda,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionAprobar, domainwf.StatePendientePresupuesto, isViaticos,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleAdministrador).
		Permit(domainwf.ActionDevolver, domainwf.StateDevueltoCorreccion,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleAdministrador)

	// PENDIENTE_ASIGNACION_PRESUPUESTO state transitions
	builder.Configure(domainwf.StatePendientePresupuesto).
		Permit(domainwf.ActionAprobar, domainwf.StatePendienteContabilidad,
			domainwf.RoleAnalistaPresupuesto, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleAnalistaPresupuesto, domainwf.RoleAdministrador)

	// PENDIENTE_CONTABILIDAD state transitions
	builder.Configure(domainwf.StatePendienteContabilidad).
		Permit(domainwf.ActionAprobar, domainwf.StatePendienteFinanzas,
			domainwf.RoleAnalistaContabilidad, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleAnalistaContabilidad, domainwf.RoleAdministrador)

	// PENDIENTE_APROBACION_FINANZAS state transitions. Amounts above the
	// refrendo threshold must pass through the comptroller's office.
	builder.Configure(domainwf.StatePendienteFinanzas).
		PermitIf(domainwf.ActionAprobar, domainwf.StatePendienteRefrendoCGR, requiresRefrendo,
			domainwf.RoleDirectorFinanzas, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionAprobar, domainwf.StateAprobadoParaPago, belowRefrendo,
			domainwf.RoleDirectorFinanzas, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleDirectorFinanzas, domainwf.RoleAdministrador)

	// PENDIENTE_REFRENDO_CGR state transitions
	builder.Configure(domainwf.StatePendienteRefrendoCGR).
		Permit(domainwf.ActionAprobar, domainwf.StateAprobadoParaPago,
			domainwf.RoleFiscalizadorCGR, domainwf.RoleAdministrador).
		Permit(domainwf.ActionRechazar, domainwf.StateRechazado,
			domainwf.RoleFiscalizadorCGR, domainwf.RoleAdministrador)

	// APROBADO_PARA_PAGO state transitions
	builder.Configure(domainwf.StateAprobadoParaPago).
		Permit(domainwf.ActionGenerarOrden, domainwf.StateOrdenPagoGenerada,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionProcesarPago, domainwf.StatePendienteFirma, isElectronicPayment,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionProcesarPago, domainwf.StatePagado, isDirectPayment,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador)

	// ORDEN_PAGO_GENERADA state transitions
	builder.Configure(domainwf.StateOrdenPagoGenerada).
		PermitIf(domainwf.ActionProcesarPago, domainwf.StatePendienteFirma, isElectronicPayment,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador).
		PermitIf(domainwf.ActionProcesarPago, domainwf.StatePagado, isDirectPayment,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador)

	// PENDIENTE_FIRMA_ELECTRONICA state transitions
	builder.Configure(domainwf.StatePendienteFirma).
		Permit(domainwf.ActionConfirmarPago, domainwf.StatePagado,
			domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, domainwf.RoleAdministrador)

	// PAGADO, RECHAZADO and CANCELADO are terminal states, no outgoing transitions

	return builder.Build(initialState)
}

func isViaticos(tc domainwf.TransitionContext) bool   { return !tc.PettyCash }
func isCajaMenuda(tc domainwf.TransitionContext) bool { return tc.PettyCash }

// requiresRefrendo holds when the approved amount strictly exceeds the
// threshold; an amount exactly at the threshold stays out of CGR review.
func requiresRefrendo(tc domainwf.TransitionContext) bool {
	return tc.ApprovedAmount.GreaterThan(tc.RefrendoThreshold)
}

func belowRefrendo(tc domainwf.TransitionContext) bool {
	return !tc.ApprovedAmount.GreaterThan(tc.RefrendoThreshold)
}

func isElectronicPayment(tc domainwf.TransitionContext) bool { return tc.ElectronicPayment }
func isDirectPayment(tc domainwf.TransitionContext) bool     { return !tc.ElectronicPayment }
