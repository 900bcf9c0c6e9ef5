package application

import (
	"fmt"

	apperrors "compound-site/internal/common/errors"
)

// Field identifies one answer on the application. The set of fields is closed.
type Field int

const (
	FieldFullName Field = iota + 1
	FieldEmail
	FieldLocation
	FieldBusinessName
	FieldWebsite
	FieldStartDate
	FieldBusinessDescription
	FieldBusinessCategories
	FieldSalesChannels
	FieldRevenue
	FieldStartReason
	FieldProudMoment
	FieldGrowthBlocker
	FieldSeriousMeaning
	FieldCurrentGoals
	FieldFundingHistory
	FieldOpenToMatch
	FieldSupportNeeds
	FieldLearningStyle
	FieldReadiness

	lastField = FieldReadiness
)

// Kind says whether a field holds free text or a set of tags.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSet:
		return "set"
	}
	return "unknown"
}

type fieldSpec struct {
	key      string
	kind     Kind
	step     Step
	label    string
	required bool
	options  []string
	// advertised maximum selection count for set fields, 0 for none
	limit int
}

var fieldSpecs = map[Field]fieldSpec{
	FieldFullName:     {key: "fullName", kind: KindScalar, step: 1, label: "Enter your Full Name"},
	FieldEmail:        {key: "email", kind: KindScalar, step: 1, label: "Enter your email", required: true},
	FieldLocation:     {key: "location", kind: KindScalar, step: 1, label: "Enter your Location (City, Province)"},
	FieldBusinessName: {key: "businessName", kind: KindScalar, step: 1, label: "What is your Business name?"},
	FieldWebsite:      {key: "website", kind: KindScalar, step: 1, label: "What is your Business website/Instagram?"},
	FieldStartDate: {key: "startDate", kind: KindScalar, step: 1, label: "When did you start your business?",
		options: []string{"Just Starting", "Less than one (1) year ago", "1-3 years ago", "3+ years ago"}},

	FieldBusinessDescription: {key: "businessDescription", kind: KindScalar, step: 2, label: "Tell us what your business sells"},
	FieldBusinessCategories: {key: "businessCategories", kind: KindSet, step: 2, label: "What industry is your business in? (Select all that apply)",
		options: []string{"Beauty & Skincare", "Fashion & Accessories", "Food & Beverage", "Home & Lifestyle", "Stationery & Gifting", "Other"}},
	FieldSalesChannels: {key: "salesChannels", kind: KindSet, step: 2, label: "Where can customers currently buy your product? (Select all that apply)",
		options: []string{"My own website", "Instagram/Facebook", "Etsy or Marketplace", "Retail stores or stockists", "Pop-up or vendor markets", "Not yet selling"}},
	FieldRevenue: {key: "revenue", kind: KindScalar, step: 2, label: "Monthly Revenue (we ask this to understand your stage, not to judge)",
		options: []string{"Not generating revenue yet", "Under $1K/month", "$1K-$5K/month", "$5K-$20K/month", "$20K+/month"}},

	FieldStartReason:    {key: "startReason", kind: KindScalar, step: 3, label: "Why did you start your business?"},
	FieldProudMoment:    {key: "proudMoment", kind: KindScalar, step: 3, label: "What's one thing you're proud of so far?"},
	FieldGrowthBlocker:  {key: "growthBlocker", kind: KindScalar, step: 3, label: "What's holding you back from growing faster right now?"},
	FieldSeriousMeaning: {key: "seriousMeaning", kind: KindScalar, step: 3, label: `What does "taking your business seriously" look like to you?`},

	FieldCurrentGoals: {key: "currentGoals", kind: KindSet, step: 4, label: "What are your current goals for your business? (Check up to 3)", limit: 3,
		options: []string{"Increase sales", "Find funding or capital", "Get into retail", "Improve my operations/inventory",
			"Build a recognizable brand", "Make this my full-time income", "Expand product line", "Collaborate with other brands"}},
	FieldFundingHistory: {key: "fundingHistory", kind: KindScalar, step: 4, label: "Have you ever received funding, grants, or investment before?",
		options: []string{"Yes", "No"}},
	FieldOpenToMatch: {key: "openToMatch", kind: KindScalar, step: 4, label: "Are you open to being matched with investors, retailers, or collaborators?",
		options: []string{"Yes", "Maybe, tell me more", "No"}},

	FieldSupportNeeds: {key: "supportNeeds", kind: KindScalar, step: 5, label: "What kind of support are you looking for right now?"},
	FieldLearningStyle: {key: "learningStyle", kind: KindScalar, step: 5, label: "How do you learn best?",
		options: []string{"I like structured programs with clear steps", "I prefer bite-sized resources I can access on my own time",
			"I need accountability and community", "I just want opportunities, not another course"}},
	FieldReadiness: {key: "readiness", kind: KindScalar, step: 5, label: "Are you ready to grow, with us in your corner? (This one's just for you)",
		options: []string{"I'm curious", "I'm committed", "I'm coasting but ready to shift"}},
}

var fieldsByKey = func() map[string]Field {
	m := make(map[string]Field, len(fieldSpecs))
	for f, spec := range fieldSpecs {
		m[spec.key] = f
	}
	return m
}()

// ParseField resolves a wire key such as "currentGoals".
func ParseField(key string) (Field, error) {
	if f, ok := fieldsByKey[key]; ok {
		return f, nil
	}
	return 0, apperrors.NewUnknownFieldError(key)
}

// Fields returns every field in form order.
func Fields() []Field {
	out := make([]Field, 0, int(lastField))
	for f := FieldFullName; f <= lastField; f++ {
		out = append(out, f)
	}
	return out
}

// FieldsForStep returns the fields shown on step s, in form order.
func FieldsForStep(s Step) []Field {
	var out []Field
	for _, f := range Fields() {
		if f.Step() == s {
			out = append(out, f)
		}
	}
	return out
}

func (f Field) Valid() bool {
	return f >= FieldFullName && f <= lastField
}

func (f Field) spec() fieldSpec {
	return fieldSpecs[f]
}

// Key is the JSON key the field serializes under.
func (f Field) Key() string {
	return f.spec().key
}

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return f.Key()
}

func (f Field) Kind() Kind       { return f.spec().kind }
func (f Field) Step() Step       { return f.spec().step }
func (f Field) Label() string    { return f.spec().label }
func (f Field) Required() bool   { return f.spec().required }
func (f Field) SelectLimit() int { return f.spec().limit }

// Options lists the presentation choices for choice and set fields.
func (f Field) Options() []string {
	opts := f.spec().options
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}
