package models

import "time"

// DimensionEntry is one row of a reference table.
type DimensionEntry struct {
	Type        *string `json:"type,omitempty"`
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	SourceLabel string  `json:"sourceLabel"`
}

// Product maps to INV_MAST.
type Product struct {
	ScrapedAt    time.Time `json:"scrp_dt" validate:"required"`
	InvID        string    `json:"inv_id" validate:"required"`
	Name         string    `json:"inv_nm" validate:"required"`
	CategoryCode string    `json:"cat_cd" validate:"required"`
	Description  string    `json:"desc_txt"`
	LinkID       string    `json:"lnk_id" validate:"required"`
	UnitPrice    float64   `json:"unit_prc" validate:"gte=0"`
}

// Values returns the row in INV_MAST column order.
func (p Product) Values() []any {
	return []any{p.InvID, p.Name, p.UnitPrice, p.CategoryCode, p.Description, p.LinkID, p.ScrapedAt}
}

// Book maps to BK_CATALOG.
type Book struct {
	ScrapedAt    time.Time `json:"scrp_dt" validate:"required"`
	Rating       *int      `json:"rtg_val" validate:"omitempty,min=1,max=5"`
	BookID       string    `json:"bk_id" validate:"required"`
	Title        string    `json:"bk_ttl" validate:"required"`
	AuthorCode   string    `json:"auth_cd" validate:"required"`
	Availability string    `json:"avail_sts" validate:"required"`
	Description  string    `json:"desc_txt"`
	LinkID       string    `json:"lnk_id" validate:"required"`
	UnitPrice    float64   `json:"unit_prc" validate:"gte=0"`
}

// Values returns the row in BK_CATALOG column order.
func (b Book) Values() []any {
	return []any{
		b.BookID, b.Title, b.UnitPrice, b.AuthorCode, b.Availability,
		intOrNil(b.Rating), b.Description, b.LinkID, b.ScrapedAt,
	}
}

// Film maps to MEDIA_MAST.
type Film struct {
	ScrapedAt    time.Time `json:"scrp_dt" validate:"required"`
	Year         *int      `json:"yr_val" validate:"omitempty,min=1800,max=3000"`
	MediaID      string    `json:"media_id" validate:"required"`
	Title        string    `json:"media_ttl" validate:"required"`
	AwardCode    string    `json:"awd_cat_cd" validate:"required"`
	DirectorCode string    `json:"dir_cd" validate:"required"`
}

// Values returns the row in MEDIA_MAST column order.
func (f Film) Values() []any {
	return []any{f.MediaID, f.Title, intOrNil(f.Year), f.AwardCode, f.DirectorCode, f.ScrapedAt}
}

// BookCategoryBridge maps to BK_CAT_XREF.
type BookCategoryBridge struct {
	BookID       string `json:"bk_id"`
	CategoryCode string `json:"bk_cat_cd"`
}

// FilmPerformerBridge maps to MEDIA_PERF_XREF.
type FilmPerformerBridge struct {
	Role          *string `json:"role_nm"`
	MediaID       string  `json:"media_id"`
	PerformerCode string  `json:"perf_cd"`
}

// FilmAwardBridge maps to MEDIA_AWD_XREF.
type FilmAwardBridge struct {
	AwardYear *int   `json:"awd_yr"`
	MediaID   string `json:"media_id"`
	AwardCode string `json:"awd_cat_cd"`
}

// ProductVariant maps to INV_VAR.
type ProductVariant struct {
	VariantID     string  `json:"var_id" validate:"required"`
	InvID         string  `json:"inv_id" validate:"required"`
	SizeCode      string  `json:"sz_cd"`
	FlavorCode    string  `json:"flv_cd"`
	PriceModifier float64 `json:"prc_mod"`
}

// ProductReview maps to INV_REV.
type ProductReview struct {
	Rating     *int       `json:"rtg_val" validate:"omitempty,min=1,max=5"`
	Reviewer   *string    `json:"rev_nm"`
	ReviewedAt *time.Time `json:"rev_dt"`
	ReviewID   string     `json:"rev_id" validate:"required"`
	InvID      string     `json:"inv_id" validate:"required"`
	Text       string     `json:"rev_txt"`
}

// SimilarProduct maps to INV_SIM.
type SimilarProduct struct {
	Score        *float64 `json:"sim_score"`
	SimID        string   `json:"sim_id" validate:"required"`
	InvID        string   `json:"inv_id" validate:"required"`
	SimilarInvID string   `json:"sim_inv_id" validate:"required"`
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}

	return int64(*v)
}

func stringOrNil(v *string) any {
	if v == nil {
		return nil
	}

	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}

	return *v
}

// Values returns the row in BK_CAT_XREF column order.
func (b BookCategoryBridge) Values() []any { return []any{b.BookID, b.CategoryCode} }

// Values returns the row in MEDIA_PERF_XREF column order.
func (b FilmPerformerBridge) Values() []any {
	return []any{b.MediaID, b.PerformerCode, stringOrNil(b.Role)}
}

// Values returns the row in MEDIA_AWD_XREF column order.
func (b FilmAwardBridge) Values() []any {
	return []any{b.MediaID, b.AwardCode, intOrNil(b.AwardYear)}
}

// Values returns the row in INV_VAR column order.
func (v ProductVariant) Values() []any {
	return []any{v.VariantID, v.InvID, v.SizeCode, v.FlavorCode, v.PriceModifier}
}

// Values returns the row in INV_REV column order.
func (r ProductReview) Values() []any {
	return []any{r.ReviewID, r.InvID, intOrNil(r.Rating), r.Text, stringOrNil(r.Reviewer), timeOrNil(r.ReviewedAt)}
}

// Values returns the row in INV_SIM column order.
func (s SimilarProduct) Values() []any {
	return []any{s.SimID, s.InvID, s.SimilarInvID, floatOrNil(s.Score)}
}

// Row is anything that renders itself in its table's column order.
type Row interface {
	Values() []any
}

// NewTable materializes typed rows into a Table for the named spec.
// It panics on an unknown table name, which is a programming error.
func NewTable[R Row](name string, rows []R) *Table {
	spec, ok := LookupSpec(name)
	if !ok {
		panic("models: unknown table " + name)
	}

	t := &Table{Spec: spec, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}

	return t
}

// DimensionTable materializes dimension entries into the named reference table.
// AWARD_REF carries the extra awd_typ column.
func DimensionTable(name string, entries []DimensionEntry) *Table {
	spec, ok := LookupSpec(name)
	if !ok {
		panic("models: unknown table " + name)
	}

	t := &Table{Spec: spec, Rows: make([][]any, 0, len(entries))}
	for _, e := range entries {
		row := []any{e.Code, e.Name}
		if len(spec.Columns) == 3 {
			row = append(row, stringOrNil(e.Type))
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}
