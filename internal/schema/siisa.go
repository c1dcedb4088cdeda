package schema

// SiisaMorososFieldSpecs defines the expected CSV columns for the SIISA debtors export.
var SiisaMorososFieldSpecs = []FieldSpec{
	{Name: "Cuil", Type: FieldNumber},
	{Name: "IdTransmit", Type: FieldNumber},
	{Name: "NroDoc", Type: FieldNumber},
	{Name: "ApellidoNombre", Type: FieldText},
	{Name: "IdCliente", Type: FieldNumber},
	{Name: "IdRegion", Type: FieldNumber},
	{Name: "RazonSocial", Type: FieldText},
	{Name: "Telefono", Type: FieldText},
	{Name: "NombreRegion", Type: FieldText},
	{Name: "NombreCategoria", Type: FieldText},
	{Name: "Periodo", Type: FieldNumber},
	{Name: "IdEntidad", Type: FieldNumber},
	{Name: "CreateDate", Type: FieldText},
	{Name: "CreateUser", Type: FieldText},
}

// SiisaEmpleadoresFieldSpecs defines the expected CSV columns for the employer registry.
var SiisaEmpleadoresFieldSpecs = []FieldSpec{
	{Name: "Cuit", Type: FieldNumber},
	{Name: "RazonSocial", Type: FieldText},
	{Name: "Domicilio", Type: FieldText},
	{Name: "CodPostal", Type: FieldText},
	{Name: "Localidad", Type: FieldText},
	{Name: "NombreProvincia", Type: FieldText},
	{Name: "Telefono", Type: FieldText},
}

// SiisaEmpleadoresRelacionesFieldSpecs defines the expected CSV columns for
// employee/employer relations. FechaIngreso and FechaBaja may be empty.
var SiisaEmpleadoresRelacionesFieldSpecs = []FieldSpec{
	{Name: "Cuil", Type: FieldNumber},
	{Name: "Cuit", Type: FieldNumber},
	{Name: "FechaIngreso", Type: FieldDate, Nullable: true},
	{Name: "FechaBaja", Type: FieldDate, Nullable: true},
}
