package epsg

// Defaults is the built-in reference table used when no EPSG file or
// database is configured.
var Defaults = []Record{
	{Code: 4326, Name: "WGS 84", Scope: "Horizontal component of 3D system.", Source: "EPSG",
		BBox: World},
	{Code: 4258, Name: "ETRS89", Scope: "Horizontal component of 3D system.", Source: "EPSG",
		BBox: BBox{West: -16.1, East: 40.18, South: 32.88, North: 84.73}},
	{Code: 3857, Name: "WGS 84 / Pseudo-Mercator", Scope: "Web mapping and visualisation.", Source: "EPSG",
		BBox: BBox{West: -180, East: 180, South: -85.06, North: 85.06}},
	{Code: 3035, Name: "ETRS89-extended / LAEA Europe", Scope: "Statistical mapping at all scales.", Source: "EPSG",
		BBox: BBox{West: -35.58, East: 44.83, South: 24.6, North: 84.73}},
	{Code: 3067, Name: "ETRS89 / TM35FIN(E,N)", Scope: "Engineering survey, topographic mapping.", Source: "EPSG",
		BBox: BBox{West: 19.08, East: 31.59, South: 58.84, North: 70.09}},
	{Code: 2393, Name: "KKJ / Finland Uniform Coordinate System", Scope: "Engineering survey, topographic mapping.", Source: "EPSG",
		BBox: BBox{West: 19.24, East: 31.59, South: 59.75, North: 70.09}},
	{Code: 2056, Name: "CH1903+ / LV95", Scope: "Cadastre, engineering survey, topographic mapping.", Source: "EPSG",
		BBox: BBox{West: 5.96, East: 10.49, South: 45.82, North: 47.81}},
	{Code: 25832, Name: "ETRS89 / UTM zone 32N", Scope: "Engineering survey, topographic mapping.", Source: "EPSG",
		BBox: BBox{West: 6, East: 12, South: 38.76, North: 84.33}},
	{Code: 25833, Name: "ETRS89 / UTM zone 33N", Scope: "Engineering survey, topographic mapping.", Source: "EPSG",
		BBox: BBox{West: 12, East: 18, South: 46.4, North: 84.42}},
	{Code: 900913, Name: "Google Maps Global Mercator", Scope: "Web mapping.", Source: "legacy", Deprecated: true,
		BBox: BBox{West: -180, East: 180, South: -85.06, North: 85.06}},
}

// LoadDefaults adds the built-in records to t.
func (t *Table) LoadDefaults() {
	for _, r := range Defaults {
		t.Add(r)
	}
}
