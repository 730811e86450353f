package domain

import "time"

// ============================================================
// Deals
// ============================================================

// DealType is the inventory class of the vehicle sold.
type DealType string

const (
	DealTypeNew       DealType = "new"
	DealTypeUsed      DealType = "used"
	DealTypeCertified DealType = "certified"
)

// Product identifies an add-on product sold with a deal.
type Product string

const (
	ProductVSC               Product = "vsc"
	ProductGAP               Product = "gap"
	ProductMaintenance       Product = "maintenance"
	ProductAccessories       Product = "accessories"
	ProductTireAndWheel      Product = "tireAndWheel"
	ProductAppearancePackage Product = "appearancePackage"
	ProductKeyReplacement    Product = "keyReplacement"
)

// Products lists every add-on product in display order.
var Products = []Product{
	ProductVSC,
	ProductGAP,
	ProductMaintenance,
	ProductAccessories,
	ProductTireAndWheel,
	ProductAppearancePackage,
	ProductKeyReplacement,
}

// ProductLabels are the short labels shown on the penetration widget.
var ProductLabels = map[Product]string{
	ProductVSC:               "VSC",
	ProductGAP:               "GAP",
	ProductMaintenance:       "Maint",
	ProductAccessories:       "Acc",
	ProductTireAndWheel:      "T&W",
	ProductAppearancePackage: "Appr",
	ProductKeyReplacement:    "Key",
}

// ProductStatus records which add-on products were sold on a deal.
// It is informational only; products do not pay commission.
type ProductStatus struct {
	VSC               bool `json:"vsc" firestore:"vsc"`
	GAP               bool `json:"gap" firestore:"gap"`
	Maintenance       bool `json:"maintenance" firestore:"maintenance"`
	Accessories       bool `json:"accessories" firestore:"accessories"`
	TireAndWheel      bool `json:"tireAndWheel" firestore:"tireAndWheel"`
	AppearancePackage bool `json:"appearancePackage" firestore:"appearancePackage"`
	KeyReplacement    bool `json:"keyReplacement" firestore:"keyReplacement"`
}

// Has reports whether the given product was sold.
func (p ProductStatus) Has(product Product) bool {
	switch product {
	case ProductVSC:
		return p.VSC
	case ProductGAP:
		return p.GAP
	case ProductMaintenance:
		return p.Maintenance
	case ProductAccessories:
		return p.Accessories
	case ProductTireAndWheel:
		return p.TireAndWheel
	case ProductAppearancePackage:
		return p.AppearancePackage
	case ProductKeyReplacement:
		return p.KeyReplacement
	}
	return false
}

// Count returns how many products were sold.
func (p ProductStatus) Count() int {
	n := 0
	for _, product := range Products {
		if p.Has(product) {
			n++
		}
	}
	return n
}

// Deal is a single delivered vehicle sale.
//
// DeliveryDate (not CreatedAt) decides which month the deal counts toward.
// Override fields replace the matching computed commission component when > 0.
type Deal struct {
	ID           string        `json:"id" firestore:"id"`
	CustomerName string        `json:"customerName" firestore:"customerName"`
	Type         DealType      `json:"type" firestore:"type"`
	Year         string        `json:"year" firestore:"year"`
	Make         string        `json:"make" firestore:"make"`
	Model        string        `json:"model" firestore:"model"`
	FrontGross   Amount        `json:"frontGross" firestore:"frontGross"`
	BackGross    Amount        `json:"backGross" firestore:"backGross"`
	FinanceGross Amount        `json:"financeGross,omitempty" firestore:"financeGross,omitempty"`
	Pack         *Amount       `json:"pack,omitempty" firestore:"pack,omitempty"`
	Flat         Amount        `json:"flat" firestore:"flat"`
	Spiffs       Amount        `json:"spiffs" firestore:"spiffs"`
	Products     ProductStatus `json:"products" firestore:"products"`
	Chargeback   Amount        `json:"chargeback" firestore:"chargeback"`
	DeliveryDate string        `json:"deliveryDate" firestore:"deliveryDate"`
	Note         string        `json:"note" firestore:"note"`
	CreatedAt    time.Time     `json:"createdAt" firestore:"createdAt"`

	OverrideFront   Amount `json:"overrideFront,omitempty" firestore:"overrideFront,omitempty"`
	OverrideBack    Amount `json:"overrideBack,omitempty" firestore:"overrideBack,omitempty"`
	OverrideReserve Amount `json:"overrideReserve,omitempty" firestore:"overrideReserve,omitempty"`
}

// TotalGross is front + back + finance gross.
func (d Deal) TotalGross() float64 {
	return d.FrontGross.Float() + d.BackGross.Float() + d.FinanceGross.Float()
}

// DealDraft is the payload for a new or edited deal. Flat and Spiffs are
// optional so the plan defaults can be pre-filled when they are absent.
type DealDraft struct {
	CustomerName string        `json:"customerName" validate:"required,max=200"`
	Type         DealType      `json:"type" validate:"required,oneof=new used certified"`
	Year         string        `json:"year" validate:"max=4"`
	Make         string        `json:"make" validate:"max=100"`
	Model        string        `json:"model" validate:"max=100"`
	FrontGross   Amount        `json:"frontGross"`
	BackGross    Amount        `json:"backGross"`
	FinanceGross Amount        `json:"financeGross"`
	Pack         *Amount       `json:"pack"`
	Flat         *Amount       `json:"flat"`
	Spiffs       *Amount       `json:"spiffs"`
	Products     ProductStatus `json:"products"`
	Chargeback   Amount        `json:"chargeback"`
	DeliveryDate string        `json:"deliveryDate" validate:"required"`
	Note         string        `json:"note" validate:"max=2000"`

	OverrideFront   Amount `json:"overrideFront"`
	OverrideBack    Amount `json:"overrideBack"`
	OverrideReserve Amount `json:"overrideReserve"`
}

// ToDeal builds a deal from the draft, pre-filling flat and spiffs from the
// plan when the draft left them out. Identity fields stay empty.
func (d DealDraft) ToDeal(plan PayPlan) Deal {
	flat := plan.FlatRate
	if d.Flat != nil {
		flat = *d.Flat
	}
	spiffs := plan.SpiffsRate
	if d.Spiffs != nil {
		spiffs = *d.Spiffs
	}

	return Deal{
		CustomerName:    d.CustomerName,
		Type:            d.Type,
		Year:            d.Year,
		Make:            d.Make,
		Model:           d.Model,
		FrontGross:      d.FrontGross,
		BackGross:       d.BackGross,
		FinanceGross:    d.FinanceGross,
		Pack:            d.Pack,
		Flat:            flat,
		Spiffs:          spiffs,
		Products:        d.Products,
		Chargeback:      d.Chargeback,
		DeliveryDate:    d.DeliveryDate,
		Note:            d.Note,
		OverrideFront:   d.OverrideFront,
		OverrideBack:    d.OverrideBack,
		OverrideReserve: d.OverrideReserve,
	}
}
