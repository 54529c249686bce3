package workflow

// Role identifies an actor role in the approval pipeline
type Role string

const (
	RoleSolicitante          Role = "SOLICITANTE"
	RoleJefeInmediato        Role = "JEFE_INMEDIATO"
	RoleAnalistaTesoreria    Role = "ANALISTA_TESORERIA"
	RoleCustodioCajaMenuda   Role = "CUSTODIO_CAJA_MENUDA"
	RoleAnalistaPresupuesto  Role = "ANALISTA_PRESUPUESTO"
	RoleAnalistaContabilidad Role = "ANALISTA_CONTABILIDAD"
	RoleDirectorFinanzas     Role = "DIRECTOR_FINANZAS"
	RoleFiscalizadorCGR      Role = "FISCALIZADOR_CGR"
	RoleAdministrador        Role = "ADMINISTRADOR_SISTEMA"
)

var validRoles = map[Role]bool{
	RoleSolicitante:          true,
	RoleJefeInmediato:        true,
	RoleAnalistaTesoreria:    true,
	RoleCustodioCajaMenuda:   true,
	RoleAnalistaPresupuesto:  true,
	RoleAnalistaContabilidad: true,
	RoleDirectorFinanzas:     true,
	RoleFiscalizadorCGR:      true,
	RoleAdministrador:        true,
}

// IsValid returns true if the role is a known actor role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// AllRoles returns every actor role
func AllRoles() []Role {
	return []Role{
		RoleSolicitante,
		RoleJefeInmediato,
		RoleAnalistaTesoreria,
		RoleCustodioCajaMenuda,
		RoleAnalistaPresupuesto,
		RoleAnalistaContabilidad,
		RoleDirectorFinanzas,
		RoleFiscalizadorCGR,
		RoleAdministrador,
	}
}
