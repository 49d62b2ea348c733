package wizard

import (
	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
)

const (
	StepSelection StepID = "selection"
	StepContact   StepID = "contact"
)

const (
	GroupBusinessType       selection.GroupID = "business_type"
	GroupServiceType        selection.GroupID = "service_type"
	GroupPromotionType      selection.GroupID = "promotion_type"
	GroupVideoType          selection.GroupID = "video_type"
	GroupSiteStatus         selection.GroupID = "site_status"
	GroupPurposeOfPromotion selection.GroupID = "purpose_of_promotion"
	GroupTaskType           selection.GroupID = "task_type"
)

// FieldQuantity is the publication count of the SMM form.
const FieldQuantity = "quantity_of_publications"

// defaultPhoneRegion is used for numbers typed without a calling code.
const defaultPhoneRegion = "KG"

func contactFields() []fields.Field {
	return []fields.Field{
		{Name: "sender_name", Kind: fields.KindText, Label: "Name", MinLength: 2},
		{Name: "sender_phone", Kind: fields.KindPhone, Label: "Phone", Region: defaultPhoneRegion},
		{Name: "sender_email", Kind: fields.KindEmail, Label: "Email"},
		{Name: "acceptTerms", Kind: fields.KindConsent, Label: "I agree to the processing of personal data", Transient: true},
	}
}

var contactStep = Step{
	ID:     StepContact,
	Title:  "Contact details",
	Fields: []string{"sender_name", "sender_phone", "sender_email", "acceptTerms"},
}

// selectionVariant builds the common two-step shape: groups first, then
// contact details.
func selectionVariant(id, title string, groups []Group, extra ...fields.Field) Config {
	step := Step{ID: StepSelection, Title: "What do you need?"}
	for _, g := range groups {
		step.Groups = append(step.Groups, g.ID)
	}
	for _, f := range extra {
		step.Fields = append(step.Fields, f.Name)
	}
	return Config{
		ID:     id,
		Title:  title,
		Steps:  []Step{step, contactStep},
		Groups: groups,
		Fields: append(contactFields(), extra...),
	}
}

var businessType = Group{ID: GroupBusinessType, Label: "Type of business"}

// DefaultConfigs returns the built-in form variants. Option lists are left
// empty: the site fills them from its content backend.
func DefaultConfigs() []Config {
	return []Config{
		{
			ID:     "contact",
			Title:  "Contact us",
			Steps:  []Step{contactStep},
			Fields: contactFields(),
		},
		selectionVariant("service", "Cost calculation", []Group{
			businessType,
			{ID: GroupServiceType, Label: "Service"},
		}),
		selectionVariant("smm", "SMM promotion", []Group{
			businessType,
			{ID: GroupPromotionType, Label: "Type of promotion"},
		}, fields.Field{Name: FieldQuantity, Kind: fields.KindCount, Label: "Publications per month", Min: 1}),
		selectionVariant("video", "Video production", []Group{
			businessType,
			{ID: GroupVideoType, Label: "Type of video"},
		}),
		selectionVariant("site", "Website development", []Group{
			businessType,
			{ID: GroupSiteStatus, Label: "Current state of the site"},
			{ID: GroupPurposeOfPromotion, Label: "Purpose of promotion"},
		}),
		selectionVariant("crm", "CRM integration", []Group{
			businessType,
			{ID: GroupTaskType, Label: "Task"},
		}),
	}
}

// Catalog is an ordered set of variants keyed by id.
type Catalog struct {
	order    []string
	variants map[string]*Variant
}

// NewCatalog indexes vs. A later variant with an id already present
// replaces the earlier one in place.
func NewCatalog(vs ...*Variant) *Catalog {
	c := &Catalog{variants: make(map[string]*Variant, len(vs))}
	for _, v := range vs {
		if _, ok := c.variants[v.id]; !ok {
			c.order = append(c.order, v.id)
		}
		c.variants[v.id] = v
	}
	return c
}

// DefaultCatalog builds the built-in variants.
func DefaultCatalog() *Catalog {
	cfgs := DefaultConfigs()
	vs := make([]*Variant, len(cfgs))
	for i, cfg := range cfgs {
		vs[i] = MustNewVariant(cfg)
	}
	return NewCatalog(vs...)
}

// With returns a new catalog holding c's variants overridden and extended by vs.
func (c *Catalog) With(vs ...*Variant) *Catalog {
	return NewCatalog(append(c.List(), vs...)...)
}

// Get looks up a variant by id.
func (c *Catalog) Get(id string) (*Variant, bool) {
	v, ok := c.variants[id]
	return v, ok
}

// List returns the variants in catalog order.
func (c *Catalog) List() []*Variant {
	out := make([]*Variant, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.variants[id])
	}
	return out
}
