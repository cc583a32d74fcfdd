package normalizer

import (
	"fmt"

	"github.com/google/uuid"

	"supplychain/internal/models"
)

var (
	variantFields = []string{"variants", "options"}
	reviewFields  = []string{"reviews", "customer_reviews"}
	similarFields = []string{"similar_products", "similar", "related_products"}
	productRefs   = []string{"product_id", "id", "url"}

	similarNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("supplychain/inv_sim"))
)

// similarRef is a similar-product edge whose target is resolved once every
// product of the run has a key.
type similarRef struct {
	Score *float64
	InvID string
	RawID string
}

// Variants reads a product's variants.
func (n *FactNormalizer) Variants(fact *Fact) []models.ProductVariant {
	f := fact.Record.Field(variantFields...)

	var variants []models.ProductVariant

	add := func(size, flavor string, modifier float64) {
		v := models.ProductVariant{
			VariantID:     fmt.Sprintf("%s_VAR_%d", fact.Key, len(variants)+1),
			InvID:         fact.Key,
			SizeCode:      helper.NormalizeWhitespace(size),
			FlavorCode:    helper.NormalizeWhitespace(flavor),
			PriceModifier: modifier,
		}

		if err := n.validator.Row(v); err != nil {
			n.issue(fact.Key, "variants", f, err)

			return
		}

		variants = append(variants, v)
	}

	switch f.Kind {
	case models.FieldAbsent:
		return nil
	case models.FieldList:
		for _, size := range nonBlank(f.List) {
			add(size, "", 0)
		}
	case models.FieldObject, models.FieldObjectList:
		for _, obj := range f.Objects {
			mod := obj.Field("price_modifier", "prc_mod", "price_delta", "price")

			modifier, err := n.transformer.ParseAmount(mod)
			if err != nil && mod.Present() {
				n.issue(fact.Key, "variants.price_modifier", mod, err)
			}

			add(obj.String("size", "sz"), obj.String("flavor", "flavour", "flv"), modifier)
		}
	default:
		n.issue(fact.Key, "variants", f, ErrUnparseable)
	}

	return variants
}

// Reviews reads a product's customer reviews.
func (n *FactNormalizer) Reviews(fact *Fact) []models.ProductReview {
	f := fact.Record.Field(reviewFields...)

	switch f.Kind {
	case models.FieldAbsent:
		return nil
	case models.FieldObject, models.FieldObjectList:
	default:
		n.issue(fact.Key, "reviews", f, ErrUnparseable)

		return nil
	}

	reviews := make([]models.ProductReview, 0, len(f.Objects))

	for _, obj := range f.Objects {
		r := models.ProductReview{
			ReviewID: fmt.Sprintf("%s_REV_%d", fact.Key, len(reviews)+1),
			InvID:    fact.Key,
			Text:     helper.NormalizeWhitespace(obj.String("text", "review", "body", "content")),
		}

		if rating := obj.Field("rating", "stars"); rating.Present() {
			r.Rating = n.rating(fact.Key, "reviews.rating", rating)
		}

		if name := helper.NormalizeWhitespace(obj.String("reviewer", "author", "user", "name")); name != "" {
			r.Reviewer = &name
		}

		if date := obj.Field("date", "review_date", "reviewed_at"); date.Present() {
			ts, err := n.transformer.ParseTime(date)
			if err != nil {
				n.issue(fact.Key, "reviews.date", date, err)
			} else {
				r.ReviewedAt = &ts
			}
		}

		if err := n.validator.Row(r); err != nil {
			n.issue(fact.Key, "reviews", f, err)

			continue
		}

		reviews = append(reviews, r)
	}

	return reviews
}

// similar reads a product's similar-product references.
func (n *FactNormalizer) similar(fact *Fact) []similarRef {
	f := fact.Record.Field(similarFields...)

	var refs []similarRef

	switch f.Kind {
	case models.FieldAbsent:
		return nil
	case models.FieldList:
		for _, id := range nonBlank(f.List) {
			refs = append(refs, similarRef{InvID: fact.Key, RawID: id})
		}
	case models.FieldObject, models.FieldObjectList:
		for _, obj := range f.Objects {
			id := obj.String(productRefs...)
			if id == "" {
				n.issue(fact.Key, "similar_products", f, ErrFieldMissing)

				continue
			}

			ref := similarRef{InvID: fact.Key, RawID: id}

			if score := obj.Field("score", "similarity", "sim_score"); score.Present() {
				v, err := n.transformer.ParseScore(score)
				if err != nil {
					n.issue(fact.Key, "similar_products.score", score, err)
				} else {
					ref.Score = &v
				}
			}

			refs = append(refs, ref)
		}
	default:
		n.issue(fact.Key, "similar_products", f, ErrUnparseable)
	}

	return refs
}

// resolveSimilar turns pending references into rows. Targets normalized in
// this run are rewritten to their key; others keep the raw id as a soft reference.
func resolveSimilar(refs []similarRef, keys map[string]string) []models.SimilarProduct {
	seen := make(map[string]struct{}, len(refs))
	rows := make([]models.SimilarProduct, 0, len(refs))

	for _, ref := range refs {
		target := ref.RawID
		if key, ok := keys[ref.RawID]; ok {
			target = key
		}

		id := uuid.NewSHA1(similarNamespace, []byte(ref.InvID+"|"+target)).String()
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		rows = append(rows, models.SimilarProduct{SimID: id, InvID: ref.InvID, SimilarInvID: target, Score: ref.Score})
	}

	return rows
}
