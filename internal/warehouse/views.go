package warehouse

import (
	"context"
	"fmt"
)

// Analytical view names.
const (
	ViewInventoryAnalytics = "VW_INV_ANALYTICS"
	ViewBookAnalytics      = "VW_BK_ANALYTICS"
	ViewMediaAnalytics     = "VW_MEDIA_ANALYTICS"
)

// Views lists the analytical views in creation order.
var Views = []string{ViewInventoryAnalytics, ViewBookAnalytics, ViewMediaAnalytics}

// CreateViews (re)creates the analytical views. Reference tables are joined
// with LEFT JOIN so rows with a dangling code still show up.
func (w *Warehouse) CreateViews(ctx context.Context) error {
	for _, name := range Views {
		if _, err := w.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+w.qualify(name)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}

		query := fmt.Sprintf("CREATE VIEW %s AS %s", w.qualify(name), w.viewQuery(name))
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
	}

	w.log.Info(fmt.Sprintf("📊 Created %d analytical views", len(Views)))

	return nil
}

func (w *Warehouse) viewQuery(name string) string {
	q := w.qualify
	agg := w.dialect.aggregate

	switch name {
	case ViewInventoryAnalytics:
		return fmt.Sprintf(`SELECT
	i.inv_id,
	i.inv_nm,
	c.cat_nm,
	i.unit_prc,
	AVG(r.rtg_val) AS avg_rtg,
	COUNT(DISTINCT r.rev_id) AS rev_cnt,
	COUNT(DISTINCT v.var_id) AS var_cnt
FROM %s i
LEFT JOIN %s c ON i.cat_cd = c.cat_cd
LEFT JOIN %s r ON i.inv_id = r.inv_id
LEFT JOIN %s v ON i.inv_id = v.inv_id
GROUP BY i.inv_id, i.inv_nm, c.cat_nm, i.unit_prc`,
			q("INV_MAST"), q("CAT_REF"), q("INV_REV"), q("INV_VAR"))
	case ViewBookAnalytics:
		return fmt.Sprintf(`SELECT
	b.bk_id,
	b.bk_ttl,
	a.auth_nm,
	b.unit_prc,
	b.rtg_val,
	%s AS categories,
	COUNT(DISTINCT x.bk_cat_cd) AS cat_cnt
FROM %s b
LEFT JOIN %s a ON b.auth_cd = a.auth_cd
LEFT JOIN %s x ON b.bk_id = x.bk_id
LEFT JOIN %s bc ON x.bk_cat_cd = bc.bk_cat_cd
GROUP BY b.bk_id, b.bk_ttl, a.auth_nm, b.unit_prc, b.rtg_val`,
			agg("bc.bk_cat_nm"), q("BK_CATALOG"), q("AUTH_REF"), q("BK_CAT_XREF"), q("BK_CAT_REF"))
	case ViewMediaAnalytics:
		return fmt.Sprintf(`SELECT
	m.media_id,
	m.media_ttl,
	m.yr_val,
	d.dir_nm,
	aw.awd_nm,
	COUNT(DISTINCT px.perf_cd) AS perf_cnt,
	%s AS performers
FROM %s m
LEFT JOIN %s d ON m.dir_cd = d.dir_cd
LEFT JOIN %s ax ON m.media_id = ax.media_id
LEFT JOIN %s aw ON ax.awd_cat_cd = aw.awd_cat_cd
LEFT JOIN %s px ON m.media_id = px.media_id
LEFT JOIN %s p ON px.perf_cd = p.perf_cd
GROUP BY m.media_id, m.media_ttl, m.yr_val, d.dir_nm, aw.awd_nm`,
			agg("p.perf_nm"), q("MEDIA_MAST"), q("DIR_REF"), q("MEDIA_AWD_XREF"), q("AWARD_REF"),
			q("MEDIA_PERF_XREF"), q("PERF_REF"))
	}

	return ""
}
