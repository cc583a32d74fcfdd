package models

// Table names as the warehouse and business queries expect them.
const (
	TableCategoryRef     = "CAT_REF"
	TableBookCategoryRef = "BK_CAT_REF"
	TableAuthorRef       = "AUTH_REF"
	TableDirectorRef     = "DIR_REF"
	TablePerformerRef    = "PERF_REF"
	TableAwardRef        = "AWARD_REF"

	TableInventory   = "INV_MAST"
	TableBookCatalog = "BK_CATALOG"
	TableMedia       = "MEDIA_MAST"

	TableBookCategoryXref = "BK_CAT_XREF"
	TableMediaPerfXref    = "MEDIA_PERF_XREF"
	TableMediaAwardXref   = "MEDIA_AWD_XREF"

	TableInventoryVariant = "INV_VAR"
	TableInventoryReview  = "INV_REV"
	TableInventorySimilar = "INV_SIM"
)

// Group is one of the four logical table groups handed to sinks.
type Group int

// Table groups, in load order.
const (
	GroupDimension Group = iota
	GroupFact
	GroupBridge
	GroupDetail
)

func (g Group) String() string {
	switch g {
	case GroupDimension:
		return "dimension"
	case GroupFact:
		return "fact"
	case GroupBridge:
		return "bridge"
	case GroupDetail:
		return "detail"
	}

	return "unknown"
}

// ColumnType is the logical type of a column. Sinks map it to their own DDL.
type ColumnType string

// Column types.
const (
	TypeCode      ColumnType = "code"
	TypeKey       ColumnType = "key"
	TypeName      ColumnType = "name"
	TypeTitle     ColumnType = "title"
	TypeText      ColumnType = "text"
	TypeFloat     ColumnType = "float"
	TypeInt       ColumnType = "int"
	TypeTimestamp ColumnType = "timestamp"
)

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// TableSpec describes one output table. References are documentation only;
// no sink turns them into constraints.
type TableSpec struct {
	References map[string]string
	Name       string
	Source     Source
	Columns    []ColumnSpec
	PrimaryKey []string
	Group      Group
}

// ColumnNames returns the column names in order.
func (t TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

// Catalog lists every table in load order: dimensions, facts, bridges, details.
var Catalog = []TableSpec{
	{
		Name: TableCategoryRef, Source: SourceProducts, Group: GroupDimension,
		Columns:    []ColumnSpec{{Name: "cat_cd", Type: TypeCode}, {Name: "cat_nm", Type: TypeName}},
		PrimaryKey: []string{"cat_cd"},
	},
	{
		Name: TableBookCategoryRef, Source: SourceBooks, Group: GroupDimension,
		Columns:    []ColumnSpec{{Name: "bk_cat_cd", Type: TypeCode}, {Name: "bk_cat_nm", Type: TypeName}},
		PrimaryKey: []string{"bk_cat_cd"},
	},
	{
		Name: TableAuthorRef, Source: SourceBooks, Group: GroupDimension,
		Columns:    []ColumnSpec{{Name: "auth_cd", Type: TypeCode}, {Name: "auth_nm", Type: TypeName}},
		PrimaryKey: []string{"auth_cd"},
	},
	{
		Name: TableDirectorRef, Source: SourceFilms, Group: GroupDimension,
		Columns:    []ColumnSpec{{Name: "dir_cd", Type: TypeCode}, {Name: "dir_nm", Type: TypeName}},
		PrimaryKey: []string{"dir_cd"},
	},
	{
		Name: TablePerformerRef, Source: SourceFilms, Group: GroupDimension,
		Columns:    []ColumnSpec{{Name: "perf_cd", Type: TypeCode}, {Name: "perf_nm", Type: TypeName}},
		PrimaryKey: []string{"perf_cd"},
	},
	{
		Name: TableAwardRef, Source: SourceFilms, Group: GroupDimension,
		Columns: []ColumnSpec{
			{Name: "awd_cat_cd", Type: TypeCode},
			{Name: "awd_nm", Type: TypeName},
			{Name: "awd_typ", Type: TypeCode, Nullable: true},
		},
		PrimaryKey: []string{"awd_cat_cd"},
	},
	{
		Name: TableInventory, Source: SourceProducts, Group: GroupFact,
		Columns: []ColumnSpec{
			{Name: "inv_id", Type: TypeKey},
			{Name: "inv_nm", Type: TypeTitle},
			{Name: "unit_prc", Type: TypeFloat},
			{Name: "cat_cd", Type: TypeCode},
			{Name: "desc_txt", Type: TypeText},
			{Name: "lnk_id", Type: TypeKey},
			{Name: "scrp_dt", Type: TypeTimestamp},
		},
		PrimaryKey: []string{"inv_id"},
		References: map[string]string{"cat_cd": TableCategoryRef},
	},
	{
		Name: TableBookCatalog, Source: SourceBooks, Group: GroupFact,
		Columns: []ColumnSpec{
			{Name: "bk_id", Type: TypeKey},
			{Name: "bk_ttl", Type: TypeTitle},
			{Name: "unit_prc", Type: TypeFloat},
			{Name: "auth_cd", Type: TypeCode},
			{Name: "avail_sts", Type: TypeCode},
			{Name: "rtg_val", Type: TypeInt, Nullable: true},
			{Name: "desc_txt", Type: TypeText},
			{Name: "lnk_id", Type: TypeKey},
			{Name: "scrp_dt", Type: TypeTimestamp},
		},
		PrimaryKey: []string{"bk_id"},
		References: map[string]string{"auth_cd": TableAuthorRef},
	},
	{
		Name: TableMedia, Source: SourceFilms, Group: GroupFact,
		Columns: []ColumnSpec{
			{Name: "media_id", Type: TypeKey},
			{Name: "media_ttl", Type: TypeTitle},
			{Name: "yr_val", Type: TypeInt, Nullable: true},
			{Name: "awd_cat_cd", Type: TypeCode},
			{Name: "dir_cd", Type: TypeCode},
			{Name: "scrp_dt", Type: TypeTimestamp},
		},
		PrimaryKey: []string{"media_id"},
		References: map[string]string{"awd_cat_cd": TableAwardRef, "dir_cd": TableDirectorRef},
	},
	{
		Name: TableBookCategoryXref, Source: SourceBooks, Group: GroupBridge,
		Columns:    []ColumnSpec{{Name: "bk_id", Type: TypeKey}, {Name: "bk_cat_cd", Type: TypeCode}},
		PrimaryKey: []string{"bk_id", "bk_cat_cd"},
		References: map[string]string{"bk_id": TableBookCatalog, "bk_cat_cd": TableBookCategoryRef},
	},
	{
		Name: TableMediaPerfXref, Source: SourceFilms, Group: GroupBridge,
		Columns: []ColumnSpec{
			{Name: "media_id", Type: TypeKey},
			{Name: "perf_cd", Type: TypeCode},
			{Name: "role_nm", Type: TypeName, Nullable: true},
		},
		PrimaryKey: []string{"media_id", "perf_cd"},
		References: map[string]string{"media_id": TableMedia, "perf_cd": TablePerformerRef},
	},
	{
		Name: TableMediaAwardXref, Source: SourceFilms, Group: GroupBridge,
		Columns: []ColumnSpec{
			{Name: "media_id", Type: TypeKey},
			{Name: "awd_cat_cd", Type: TypeCode},
			{Name: "awd_yr", Type: TypeInt, Nullable: true},
		},
		PrimaryKey: []string{"media_id", "awd_cat_cd"},
		References: map[string]string{"media_id": TableMedia, "awd_cat_cd": TableAwardRef},
	},
	{
		Name: TableInventoryVariant, Source: SourceProducts, Group: GroupDetail,
		Columns: []ColumnSpec{
			{Name: "var_id", Type: TypeKey},
			{Name: "inv_id", Type: TypeKey},
			{Name: "sz_cd", Type: TypeCode},
			{Name: "flv_cd", Type: TypeCode},
			{Name: "prc_mod", Type: TypeFloat},
		},
		PrimaryKey: []string{"var_id"},
		References: map[string]string{"inv_id": TableInventory},
	},
	{
		Name: TableInventoryReview, Source: SourceProducts, Group: GroupDetail,
		Columns: []ColumnSpec{
			{Name: "rev_id", Type: TypeKey},
			{Name: "inv_id", Type: TypeKey},
			{Name: "rtg_val", Type: TypeInt, Nullable: true},
			{Name: "rev_txt", Type: TypeText},
			{Name: "rev_nm", Type: TypeName, Nullable: true},
			{Name: "rev_dt", Type: TypeTimestamp, Nullable: true},
		},
		PrimaryKey: []string{"rev_id"},
		References: map[string]string{"inv_id": TableInventory},
	},
	{
		Name: TableInventorySimilar, Source: SourceProducts, Group: GroupDetail,
		Columns: []ColumnSpec{
			{Name: "sim_id", Type: TypeKey},
			{Name: "inv_id", Type: TypeKey},
			{Name: "sim_inv_id", Type: TypeKey},
			{Name: "sim_score", Type: TypeFloat, Nullable: true},
		},
		PrimaryKey: []string{"sim_id"},
		References: map[string]string{"inv_id": TableInventory, "sim_inv_id": TableInventory},
	},
}

// LookupSpec returns the spec of a table by name.
func LookupSpec(name string) (TableSpec, bool) {
	for _, spec := range Catalog {
		if spec.Name == name {
			return spec, true
		}
	}

	return TableSpec{}, false
}

// SpecsFor returns the tables owned by a source, in load order.
func SpecsFor(source Source) []TableSpec {
	var specs []TableSpec

	for _, spec := range Catalog {
		if spec.Source == source {
			specs = append(specs, spec)
		}
	}

	return specs
}

// Table is a materialized table: a spec plus rows whose values follow the column order.
// Values are string, float64, int64, time.Time or nil.
type Table struct {
	Spec TableSpec
	Rows [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Rows)
}
