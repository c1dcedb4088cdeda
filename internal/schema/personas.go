package schema

// PersonasTelefonosFieldSpecs defines the expected CSV columns for the
// customer phone directory export.
var PersonasTelefonosFieldSpecs = []FieldSpec{
	{Name: "IdCliente", Type: FieldNumber},
	{Name: "IdTransmit", Type: FieldNumber},
	{Name: "NroDoc", Type: FieldNumber},
	{Name: "NroTelefono", Type: FieldNumber},
	{Name: "ApellidoNombre", Type: FieldText},
	{Name: "RazonSocial", Type: FieldText},
	{Name: "NombreRegion", Type: FieldText},
	{Name: "Direccion", Type: FieldText},
	{Name: "DireccionAfip", Type: FieldText},
	{Name: "Mail", Type: FieldText},
	{Name: "IdEntidad", Type: FieldNumber},
	{Name: "CreateDate", Type: FieldText},
	{Name: "CreateUser", Type: FieldText},
}
