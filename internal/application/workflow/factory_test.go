package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	domainwf "github.com/aitsa/viaticos-engine/internal/domain/workflow"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildMissionStateMachine(t *testing.T) {
	viaticos := domainwf.TransitionContext{}
	cajaMenuda := domainwf.TransitionContext{PettyCash: true}
	aboveThreshold := domainwf.TransitionContext{
		ApprovedAmount:    dec("1500.00"),
		RefrendoThreshold: dec("1000.00"),
	}
	atThreshold := domainwf.TransitionContext{
		ApprovedAmount:    dec("1000.00"),
		RefrendoThreshold: dec("1000.00"),
	}
	electronic := domainwf.TransitionContext{ElectronicPayment: true}

	tests := []struct {
		name         string
		initialState domainwf.State
		action       domainwf.Action
		role         domainwf.Role
		tc           domainwf.TransitionContext
		wantState    domainwf.State
		wantError    bool
	}{
		{
			name:         "BORRADOR -> PENDIENTE_JEFE on ENVIAR",
			initialState: domainwf.StateBorrador,
			action:       domainwf.ActionEnviar,
			role:         domainwf.RoleSolicitante,
			wantState:    domainwf.StatePendienteJefe,
		},
		{
			name:         "BORRADOR -> CANCELADO on CANCELAR",
			initialState: domainwf.StateBorrador,
			action:       domainwf.ActionCancelar,
			role:         domainwf.RoleSolicitante,
			wantState:    domainwf.StateCancelado,
		},
		{
			name:         "DEVUELTO_CORRECCION -> PENDIENTE_JEFE on ENVIAR",
			initialState: domainwf.StateDevueltoCorreccion,
			action:       domainwf.ActionEnviar,
			role:         domainwf.RoleSolicitante,
			wantState:    domainwf.StatePendienteJefe,
		},
		{
			name:         "DEVUELTO_CORRECCION -> CANCELADO on CANCELAR",
			initialState: domainwf.StateDevueltoCorreccion,
			action:       domainwf.ActionCancelar,
			role:         domainwf.RoleSolicitante,
			wantState:    domainwf.StateCancelado,
		},
		{
			name:         "PENDIENTE_JEFE viaticos -> PENDIENTE_REVISION_TESORERIA on APROBAR",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleJefeInmediato,
			tc:           viaticos,
			wantState:    domainwf.StatePendienteTesoreria,
		},
		{
			name:         "PENDIENTE_JEFE caja menuda -> APROBADO_PARA_PAGO on APROBAR",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleJefeInmediato,
			tc:           cajaMenuda,
			wantState:    domainwf.StateAprobadoParaPago,
		},
		{
			name:         "PENDIENTE_JEFE -> APROBADO_PARA_PAGO on APROBAR_DIRECTO",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionAprobarDirecto,
			role:         domainwf.RoleJefeInmediato,
			tc:           viaticos,
			wantState:    domainwf.StateAprobadoParaPago,
		},
		{
			name:         "PENDIENTE_JEFE -> DEVUELTO_CORRECCION on DEVOLVER",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionDevolver,
			role:         domainwf.RoleJefeInmediato,
			wantState:    domainwf.StateDevueltoCorreccion,
		},
		{
			name:         "PENDIENTE_JEFE -> RECHAZADO on RECHAZAR",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionRechazar,
			role:         domainwf.RoleJefeInmediato,
			wantState:    domainwf.StateRechazado,
		},
		{
			name:         "PENDIENTE_REVISION_TESORERIA viaticos -> PENDIENTE_ASIGNACION_PRESUPUESTO",
			initialState: domainwf.StatePendienteTesoreria,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAnalistaTesoreria,
			tc:           viaticos,
			wantState:    domainwf.StatePendientePresupuesto,
		},
		{
			name:         "PENDIENTE_REVISION_TESORERIA caja menuda -> APROBADO_PARA_PAGO",
			initialState: domainwf.StatePendienteTesoreria,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAnalistaTesoreria,
			tc:           cajaMenuda,
			wantState:    domainwf.StateAprobadoParaPago,
		},
		{
			name:         "PENDIENTE_ASIGNACION_PRESUPUESTO -> PENDIENTE_CONTABILIDAD",
			initialState: domainwf.StatePendientePresupuesto,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAnalistaPresupuesto,
			wantState:    domainwf.StatePendienteContabilidad,
		},
		{
			name:         "PENDIENTE_CONTABILIDAD -> PENDIENTE_APROBACION_FINANZAS",
			initialState: domainwf.StatePendienteContabilidad,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAnalistaContabilidad,
			wantState:    domainwf.StatePendienteFinanzas,
		},
		{
			name:         "PENDIENTE_APROBACION_FINANZAS above threshold -> PENDIENTE_REFRENDO_CGR",
			initialState: domainwf.StatePendienteFinanzas,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleDirectorFinanzas,
			tc:           aboveThreshold,
			wantState:    domainwf.StatePendienteRefrendoCGR,
		},
		{
			name:         "PENDIENTE_APROBACION_FINANZAS exactly at threshold -> APROBADO_PARA_PAGO",
			initialState: domainwf.StatePendienteFinanzas,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleDirectorFinanzas,
			tc:           atThreshold,
			wantState:    domainwf.StateAprobadoParaPago,
		},
		{
			name:         "PENDIENTE_REFRENDO_CGR -> APROBADO_PARA_PAGO",
			initialState: domainwf.StatePendienteRefrendoCGR,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleFiscalizadorCGR,
			wantState:    domainwf.StateAprobadoParaPago,
		},
		{
			name:         "PENDIENTE_REFRENDO_CGR -> RECHAZADO",
			initialState: domainwf.StatePendienteRefrendoCGR,
			action:       domainwf.ActionRechazar,
			role:         domainwf.RoleFiscalizadorCGR,
			wantState:    domainwf.StateRechazado,
		},
		{
			name:         "APROBADO_PARA_PAGO -> ORDEN_PAGO_GENERADA on GENERAR_ORDEN",
			initialState: domainwf.StateAprobadoParaPago,
			action:       domainwf.ActionGenerarOrden,
			role:         domainwf.RoleAnalistaTesoreria,
			wantState:    domainwf.StateOrdenPagoGenerada,
		},
		{
			name:         "APROBADO_PARA_PAGO cash -> PAGADO on PROCESAR_PAGO",
			initialState: domainwf.StateAprobadoParaPago,
			action:       domainwf.ActionProcesarPago,
			role:         domainwf.RoleCustodioCajaMenuda,
			wantState:    domainwf.StatePagado,
		},
		{
			name:         "APROBADO_PARA_PAGO electronic -> PENDIENTE_FIRMA_ELECTRONICA",
			initialState: domainwf.StateAprobadoParaPago,
			action:       domainwf.ActionProcesarPago,
			role:         domainwf.RoleAnalistaTesoreria,
			tc:           electronic,
			wantState:    domainwf.StatePendienteFirma,
		},
		{
			name:         "ORDEN_PAGO_GENERADA electronic -> PENDIENTE_FIRMA_ELECTRONICA",
			initialState: domainwf.StateOrdenPagoGenerada,
			action:       domainwf.ActionProcesarPago,
			role:         domainwf.RoleAnalistaTesoreria,
			tc:           electronic,
			wantState:    domainwf.StatePendienteFirma,
		},
		{
			name:         "PENDIENTE_FIRMA_ELECTRONICA -> PAGADO on CONFIRMAR_PAGO",
			initialState: domainwf.StatePendienteFirma,
			action:       domainwf.ActionConfirmarPago,
			role:         domainwf.RoleAnalistaTesoreria,
			wantState:    domainwf.StatePagado,
		},
		{
			name:         "administrator allowed on any stage",
			initialState: domainwf.StatePendienteContabilidad,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAdministrador,
			wantState:    domainwf.StatePendienteFinanzas,
		},
		{
			name:         "solicitante cannot approve",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleSolicitante,
			tc:           viaticos,
			wantError:    true,
		},
		{
			name:         "jefe cannot act on treasury stage",
			initialState: domainwf.StatePendienteTesoreria,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleJefeInmediato,
			tc:           viaticos,
			wantError:    true,
		},
		{
			name:         "no DEVOLVER from budget stage",
			initialState: domainwf.StatePendientePresupuesto,
			action:       domainwf.ActionDevolver,
			role:         domainwf.RoleAnalistaPresupuesto,
			wantError:    true,
		},
		{
			name:         "PAGADO is terminal",
			initialState: domainwf.StatePagado,
			action:       domainwf.ActionAprobar,
			role:         domainwf.RoleAdministrador,
			wantError:    true,
		},
		{
			name:         "RECHAZADO is terminal",
			initialState: domainwf.StateRechazado,
			action:       domainwf.ActionEnviar,
			role:         domainwf.RoleSolicitante,
			wantError:    true,
		},
		{
			name:         "CANCELADO is terminal",
			initialState: domainwf.StateCancelado,
			action:       domainwf.ActionEnviar,
			role:         domainwf.RoleSolicitante,
			wantError:    true,
		},
		{
			name:         "no CANCELAR once submitted",
			initialState: domainwf.StatePendienteJefe,
			action:       domainwf.ActionCancelar,
			role:         domainwf.RoleSolicitante,
			wantError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildMissionStateMachine(tt.initialState)
			got, err := machine.Resolve(tt.action, tt.role, tt.tc)

			if tt.wantError {
				if err == nil {
					t.Fatalf("Resolve() = %s, want error", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.wantState {
				t.Errorf("Resolve() = %s, want %s", got, tt.wantState)
			}
		})
	}
}

// TestMissionMatrix_Exhaustive enumerates every (state, action, role) triple
// and checks it resolves only along a declared edge. Guards are exercised
// under contexts covering both sides of each branch, so a triple succeeds
// somewhere if and only if the matrix declares it.
func TestMissionMatrix_Exhaustive(t *testing.T) {
	admin := domainwf.RoleAdministrador
	paying := []domainwf.Role{domainwf.RoleAnalistaTesoreria, domainwf.RoleCustodioCajaMenuda, admin}

	authorized := map[domainwf.State]map[domainwf.Action][]domainwf.Role{
		domainwf.StateBorrador: {
			domainwf.ActionEnviar:   {domainwf.RoleSolicitante, admin},
			domainwf.ActionCancelar: {domainwf.RoleSolicitante, admin},
		},
		domainwf.StateDevueltoCorreccion: {
			domainwf.ActionEnviar:   {domainwf.RoleSolicitante, admin},
			domainwf.ActionCancelar: {domainwf.RoleSolicitante, admin},
		},
		domainwf.StatePendienteJefe: {
			domainwf.ActionAprobar:        {domainwf.RoleJefeInmediato, admin},
			domainwf.ActionAprobarDirecto: {domainwf.RoleJefeInmediato, admin},
			domainwf.ActionRechazar:       {domainwf.RoleJefeInmediato, admin},
			domainwf.ActionDevolver:       {domainwf.RoleJefeInmediato, admin},
		},
		domainwf.StatePendienteTesoreria: {
			domainwf.ActionAprobar:  {domainwf.RoleAnalistaTesoreria, admin},
			domainwf.ActionRechazar: {domainwf.RoleAnalistaTesoreria, admin},
			domainwf.ActionDevolver: {domainwf.RoleAnalistaTesoreria, admin},
		},
		domainwf.StatePendientePresupuesto: {
			domainwf.ActionAprobar:  {domainwf.RoleAnalistaPresupuesto, admin},
			domainwf.ActionRechazar: {domainwf.RoleAnalistaPresupuesto, admin},
		},
		domainwf.StatePendienteContabilidad: {
			domainwf.ActionAprobar:  {domainwf.RoleAnalistaContabilidad, admin},
			domainwf.ActionRechazar: {domainwf.RoleAnalistaContabilidad, admin},
		},
		domainwf.StatePendienteFinanzas: {
			domainwf.ActionAprobar:  {domainwf.RoleDirectorFinanzas, admin},
			domainwf.ActionRechazar: {domainwf.RoleDirectorFinanzas, admin},
		},
		domainwf.StatePendienteRefrendoCGR: {
			domainwf.ActionAprobar:  {domainwf.RoleFiscalizadorCGR, admin},
			domainwf.ActionRechazar: {domainwf.RoleFiscalizadorCGR, admin},
		},
		domainwf.StateAprobadoParaPago: {
			domainwf.ActionGenerarOrden: paying,
			domainwf.ActionProcesarPago: paying,
		},
		domainwf.StateOrdenPagoGenerada: {
			domainwf.ActionProcesarPago: paying,
		},
		domainwf.StatePendienteFirma: {
			domainwf.ActionConfirmarPago: paying,
		},
		domainwf.StatePagado:    {},
		domainwf.StateRechazado: {},
		domainwf.StateCancelado: {},
	}

	// Both sides of every guard dimension.
	contexts := []domainwf.TransitionContext{
		{ApprovedAmount: dec("500.00"), RefrendoThreshold: dec("1000.00")},
		{ApprovedAmount: dec("1500.00"), RefrendoThreshold: dec("1000.00"), ElectronicPayment: true},
		{PettyCash: true, ApprovedAmount: dec("500.00"), RefrendoThreshold: dec("1000.00")},
		{PettyCash: true, ApprovedAmount: dec("1500.00"), RefrendoThreshold: dec("1000.00"), ElectronicPayment: true},
	}

	for _, state := range domainwf.AllStates() {
		machine := BuildMissionStateMachine(state)
		for _, action := range domainwf.AllActions() {
			for _, role := range domainwf.AllRoles() {
				allowed := false
				for _, r := range authorized[state][action] {
					if r == role {
						allowed = true
						break
					}
				}

				resolved := false
				for _, tc := range contexts {
					if _, err := machine.Resolve(action, role, tc); err == nil {
						resolved = true
						break
					}
				}

				if resolved != allowed {
					t.Errorf("(%s, %s, %s): resolved = %v, want %v", state, action, role, resolved, allowed)
				}
			}
		}
	}
}
