package services

// atpRow is one line of the acceptance-test checklist sheet. HardCoded
// is the checklist item, Source says where the value comes from (a
// "SectN" marker ties the row to one sector), Value carries the fixed
// entries the checklist ships with.
type atpRow struct {
	HardCoded string
	Source    string
	Value     string
}

// atpSectionHeaders are highlighted when the sheet is rendered.
var atpSectionHeaders = map[string]bool{
	"Site Detail":          true,
	"Installation Details": true,
	"Cable":                true,
	"Base Radio Details":   true,
	"Labelling":            true,
	"Snap":                 true,
}

// atpTemplateRows is the ATP11A checklist layout. Rows with an empty
// Value are filled from the job and master workbook at export time.
var atpTemplateRows = []atpRow{
	{"Site Detail", "", ""},
	{"Circle", "", ""},
	{"PMP SAP ID", "Master", ""},
	{"eNB SAP ID", "Master", ""},
	{"eNB/CSS Site SAP ID", "Master", ""},
	{"Site/Location Name", "Master", ""},
	{"Site/Location Address", "Master", ""},
	{"GIS Sector ID", "Master", ""},

	{"Installation Details", "", ""},
	{"A6 NE ID", "Sect1", ""},
	{"A6 NE ID", "Sect2", ""},
	{"A6 NE ID", "Sect3", ""},
	{"IPv6 Pool Address", "Master", ""},
	{"Mounting Type", "", "Pole"},
	{"Installation as per MOP", "", "Yes"},

	{"Cable", "", ""},
	{"Power Cable Type", "", "6mm Cu"},
	{"Power Cable Routing as per plan", "", "Yes"},
	{"CPRI Cable Type", "", "Armoured"},
	{"Roxtec Sealing Done", "", "Yes"},

	{"Base Radio Details", "", ""},
	{"Base Radio Planned Azimuth (in degree) (Sect0,Sect1,Sect2)", "Site", ""},
	{"Base Radio Actual Azimuth (in degree) (Sect0,Sect1,Sect2)", "Site", ""},
	{"Base Radio Planned Height (in mtr) (Sect0,Sect1,Sect2)", "Master", ""},
	{"Base Radio Actual Height (in mtr) (Sect0,Sect1,Sect2)", "Master", ""},
	{"Base Radio Actual Tilt (in degree) (Sect0,Sect1,Sect2)", "Master", ""},

	{"Labelling", "", ""},
	{"MAC Address", "Sect1", ""},
	{"MAC Address", "Sect2", ""},
	{"MAC Address", "Sect3", ""},
	{"Serial Number", "Sect1", ""},
	{"Serial Number", "Sect2", ""},
	{"Serial Number", "Sect3", ""},

	{"Snap", "", ""},
	{"All checklist photos uploaded", "", "Yes"},
	{"Grounding photos verified", "", "Yes"},
}
