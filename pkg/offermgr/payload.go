// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package offermgr

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	_configureSchema    = "https://schema.mp.microsoft.com/schema/configure/2022-07-01"
	_planPricingSchema  = "https://schema.mp.microsoft.com/schema/price-and-availability-private-offer-plan/2023-07-15"
	_privateOfferSchema = "https://schema.mp.microsoft.com/schema/private-offer/2023-07-15"

	_offerPricingType  = "saasNewCustomizedPlans"
	_offerStateDraft   = "draft"
	_offerTypePromo    = "customerPromotion"
	_recurrentFlatRate = "flatRate"
	_priceInputUSD     = "usd"
	_discountAbsolute  = "absolute"
)

const (
	_defaultProduct                = "product/d414cbcc-a721-4b58-bdaa-145e05e87fa7"
	_defaultBasePlan               = "plan/d414cbcc-a721-4b58-bdaa-145e05e87fa7/1bed11cb-98e3-4429-942f-2561eb6e212c"
	_defaultResourceName           = "newSaaSPlanAbsolutePricing"
	_defaultEnd                    = "2024-06-28"
	_defaultAcceptBy               = "2024-05-28"
	_defaultPreparedBy             = "sundaran.s@workspan.com"
	_defaultTermsDocURL            = "https://query.prod.cms.rt.microsoft.com/cms/api/am/binary/RE4rFOA"
	_defaultBeneficiaryID          = "xxxxxx-2163-5eea-ae4e-d6e88627c26b:6ea018a9-da9d-4eae-8610-22b51ebe260b_2019-05-31"
	_defaultBeneficiaryDescription = "Top First Customer"
)

// PayloadConfig holds the template values shared by every generated
// configure document.
type PayloadConfig struct {
	// Product and base plan the generated offers discount
	Product  string `yaml:"product"`
	BasePlan string `yaml:"base_plan"`

	// Name of the plan pricing resource referenced by every offer
	ResourceName string `yaml:"resource_name"`

	// Offer end and acceptance deadlines, yyyy-mm-dd
	End      string `yaml:"end"`
	AcceptBy string `yaml:"accept_by"`

	PreparedBy           string   `yaml:"prepared_by"`
	TermsDocURL          string   `yaml:"terms_doc_url"`
	NotificationContacts []string `yaml:"notification_contacts"`

	// Customer the offers are extended to
	BeneficiaryID          string `yaml:"beneficiary_id"`
	BeneficiaryDescription string `yaml:"beneficiary_description"`
}

// Normalize configuration by setting unassigned fields to default values.
func (c *PayloadConfig) Normalize() {
	if c.Product == "" {
		c.Product = _defaultProduct
	}
	if c.BasePlan == "" {
		c.BasePlan = _defaultBasePlan
	}
	if c.ResourceName == "" {
		c.ResourceName = _defaultResourceName
	}
	if c.End == "" {
		c.End = _defaultEnd
	}
	if c.AcceptBy == "" {
		c.AcceptBy = _defaultAcceptBy
	}
	if c.PreparedBy == "" {
		c.PreparedBy = _defaultPreparedBy
	}
	if c.TermsDocURL == "" {
		c.TermsDocURL = _defaultTermsDocURL
	}
	if len(c.NotificationContacts) == 0 {
		c.NotificationContacts = []string{c.PreparedBy}
	}
	if c.BeneficiaryID == "" {
		c.BeneficiaryID = _defaultBeneficiaryID
	}
	if c.BeneficiaryDescription == "" {
		c.BeneficiaryDescription = _defaultBeneficiaryDescription
	}
}

type configureDocument struct {
	Schema    string        `json:"$schema"`
	Resources []interface{} `json:"resources"`
}

type planPricingResource struct {
	Schema           string      `json:"$schema"`
	Product          string      `json:"product"`
	ResourceName     string      `json:"resourceName"`
	Plan             string      `json:"plan"`
	OfferPricingType string      `json:"offerPricingType"`
	Pricing          planPricing `json:"pricing"`
}

type planPricing struct {
	RecurrentPrice recurrentPrice `json:"recurrentPrice"`
	CustomMeters   customMeters   `json:"customMeters"`
}

type recurrentPrice struct {
	RecurrentPriceMode string  `json:"recurrentPriceMode"`
	PriceInputOption   string  `json:"priceInputOption"`
	Prices             []price `json:"prices"`
}

type price struct {
	BillingTerm          term    `json:"billingTerm"`
	PaymentOption        term    `json:"paymentOption"`
	PricePerPaymentInUSD float64 `json:"pricePerPaymentInUsd"`
}

type term struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type customMeters struct {
	PriceInputOption string           `json:"priceInputOption"`
	Meters           map[string]meter `json:"meters"`
}

type meter struct {
	IncludedQuantities   []includedQuantity `json:"includedQuantities"`
	PricePerPaymentInUSD float64            `json:"pricePerPaymentInUsd"`
}

// includedQuantity carries no quantity at all for an infinite term.
type includedQuantity struct {
	BillingTerm term     `json:"billingTerm"`
	IsInfinite  bool     `json:"isInfinite"`
	Quantity    *float64 `json:"quantity,omitempty"`
}

type privateOfferResource struct {
	Schema               string         `json:"$schema"`
	Name                 string         `json:"name"`
	State                string         `json:"state"`
	PrivateOfferType     string         `json:"privateOfferType"`
	OfferPricingType     string         `json:"offerPricingType"`
	VariableStartDate    bool           `json:"variableStartDate"`
	End                  string         `json:"end"`
	AcceptBy             string         `json:"acceptBy"`
	PreparedBy           string         `json:"preparedBy"`
	TermsDocSasURL       string         `json:"termsAndConditionsDocSasUrl"`
	NotificationContacts []string       `json:"notificationContacts"`
	Beneficiaries        []beneficiary  `json:"beneficiaries"`
	Pricing              []offerPricing `json:"pricing"`
}

type beneficiary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type offerPricing struct {
	Product        string         `json:"product"`
	DiscountType   string         `json:"discountType"`
	PriceDetails   priceDetails   `json:"priceDetails"`
	BasePlan       string         `json:"basePlan"`
	NewPlanDetails newPlanDetails `json:"newPlanDetails"`
}

type priceDetails struct {
	ResourceName string `json:"resourceName"`
}

type newPlanDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Builder renders configure documents for generated offers.
type Builder struct {
	cfg PayloadConfig
}

// NewBuilder returns a Builder rendering documents from the given template
// values.
func NewBuilder(cfg PayloadConfig) *Builder {
	cfg.Normalize()
	return &Builder{cfg: cfg}
}

// Build renders the configure document creating the named offer. The output
// is deterministic, the same name always yields the same bytes.
func (b *Builder) Build(offerName string) ([]byte, error) {
	doc := configureDocument{
		Schema: _configureSchema,
		Resources: []interface{}{
			b.planPricing(),
			b.privateOffer(offerName),
		},
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(
			err, "failed to marshal configure document for %s", offerName)
	}
	return payload, nil
}

func (b *Builder) planPricing() planPricingResource {
	monthly := term{Type: "month", Value: 1}
	yearly := term{Type: "year", Value: 1}
	ten := 10.0
	four := 4.0

	return planPricingResource{
		Schema:           _planPricingSchema,
		Product:          b.cfg.Product,
		ResourceName:     b.cfg.ResourceName,
		Plan:             b.cfg.BasePlan,
		OfferPricingType: _offerPricingType,
		Pricing: planPricing{
			RecurrentPrice: recurrentPrice{
				RecurrentPriceMode: _recurrentFlatRate,
				PriceInputOption:   _priceInputUSD,
				Prices: []price{
					{
						BillingTerm:          monthly,
						PaymentOption:        monthly,
						PricePerPaymentInUSD: ten,
					},
					{
						BillingTerm:          yearly,
						PaymentOption:        monthly,
						PricePerPaymentInUSD: ten,
					},
				},
			},
			CustomMeters: customMeters{
				PriceInputOption: _priceInputUSD,
				Meters: map[string]meter{
					"xyx": {
						IncludedQuantities: []includedQuantity{
							{
								BillingTerm: monthly,
								Quantity:    &ten,
							},
							{
								BillingTerm: yearly,
								IsInfinite:  true,
							},
						},
						PricePerPaymentInUSD: ten,
					},
					"ws43": {
						IncludedQuantities: []includedQuantity{
							{
								BillingTerm: monthly,
								Quantity:    &four,
							},
							{
								BillingTerm: yearly,
								Quantity:    &four,
							},
						},
						PricePerPaymentInUSD: ten,
					},
				},
			},
		},
	}
}

func (b *Builder) privateOffer(offerName string) privateOfferResource {
	return privateOfferResource{
		Schema:               _privateOfferSchema,
		Name:                 offerName,
		State:                _offerStateDraft,
		PrivateOfferType:     _offerTypePromo,
		OfferPricingType:     _offerPricingType,
		VariableStartDate:    true,
		End:                  b.cfg.End,
		AcceptBy:             b.cfg.AcceptBy,
		PreparedBy:           b.cfg.PreparedBy,
		TermsDocSasURL:       b.cfg.TermsDocURL,
		NotificationContacts: b.cfg.NotificationContacts,
		Beneficiaries: []beneficiary{
			{
				ID:          b.cfg.BeneficiaryID,
				Description: b.cfg.BeneficiaryDescription,
			},
		},
		Pricing: []offerPricing{
			{
				Product:      b.cfg.Product,
				DiscountType: _discountAbsolute,
				PriceDetails: priceDetails{
					ResourceName: b.cfg.ResourceName,
				},
				BasePlan: b.cfg.BasePlan,
				NewPlanDetails: newPlanDetails{
					Name:        "plan_" + offerName,
					Description: "custom plan description",
				},
			},
		},
	}
}
