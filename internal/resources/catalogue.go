// Package resources declares the admin entities served by the console.
package resources

import (
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/view"
)

func options(values ...string) []crud.Option {
	out := make([]crud.Option, 0, len(values))
	for _, v := range values {
		out = append(out, crud.Option{Value: v, Label: crud.Label(v)})
	}
	return out
}

var (
	userRoles      = []crud.Option{{Value: "user", Label: "User"}, {Value: "admin", Label: "Admin"}, {Value: "superadmin", Label: "Super Admin"}}
	accountStatus  = options("active", "inactive", "suspended")
	caseStatus     = options("pending", "ongoing", "adjourned", "closed")
	caseTypes      = options("civil", "criminal", "commercial", "land", "family", "labour")
	personTypes    = options("plaintiff", "defendant", "lawyer", "judge", "witness")
	bankTypes      = options("commercial", "rural", "development", "microfinance")
	insuranceTypes = options("life", "non_life", "health", "composite", "reinsurance")
	companyTypes   = options("limited_liability", "public_limited", "partnership", "sole_proprietorship", "non_profit")
	paymentStatus  = options("pending", "completed", "failed", "refunded")
	paymentMethods = options("card", "mobile_money", "bank_transfer")
	settingGroups  = options("general", "security", "email", "payments", "search")
)

// Users are console and subscriber accounts.
var Users = crud.Resource{
	Key:          "users",
	Title:        "Users",
	Singular:     "User",
	Description:  "Accounts that can sign in to Dennislaw SVD.",
	Stats:        true,
	Editable:     true,
	StatusToggle: true,
	Columns: []crud.Column{
		{Path: "name"},
		{Path: "email"},
		{Path: "phone"},
		{Path: "role", Kind: crud.KindBadge},
		{Path: "status", Kind: crud.KindBadge},
		{Path: "created_at", Label: "Joined", Kind: crud.KindDate},
	},
	Filters: []crud.Filter{
		{Param: "role", Options: userRoles},
		{Param: "status", Options: accountStatus},
	},
	Fields: []crud.Field{
		{Name: "name", Label: "Full name", Type: crud.FieldText, Rules: "required,max=120"},
		{Name: "email", Type: crud.FieldEmail, Rules: "required,looseemail"},
		{Name: "phone", Type: crud.FieldTel, Rules: "omitempty,phone"},
		{Name: "role", Type: crud.FieldSelect, Rules: "required,oneof=user admin superadmin", Options: userRoles},
		{Name: "password", Type: crud.FieldPassword, Rules: "required,min=8", CreateOnly: true},
	},
}

// Cases are court cases indexed by the lookup service.
var Cases = crud.Resource{
	Key:         "cases",
	Title:       "Cases",
	Singular:    "Case",
	Description: "Court cases with suit numbers, parties and hearing status.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "title"},
		{Path: "suit_number"},
		{Path: "court.name", Label: "Court"},
		{Path: "case_type", Label: "Type", Kind: crud.KindBadge},
		{Path: "status", Kind: crud.KindBadge},
		{Path: "date_filed", Label: "Filed", Kind: crud.KindDate},
	},
	Filters: []crud.Filter{
		{Param: "status", Options: caseStatus},
		{Param: "case_type", Label: "Case type", Options: caseTypes},
	},
}

// People are parties, counsel and judges referenced by cases.
var People = crud.Resource{
	Key:         "people",
	Title:       "People",
	Singular:    "Person",
	Description: "Individuals named in case records.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "full_name", Label: "Name"},
		{Path: "person_type", Label: "Type", Kind: crud.KindBadge},
		{Path: "contact.email", Label: "Email"},
		{Path: "contact.phone", Label: "Phone"},
		{Path: "cases_count", Label: "Cases", Kind: crud.KindNumber},
	},
	Filters: []crud.Filter{
		{Param: "person_type", Label: "Person type", Options: personTypes},
	},
}

// Banks are financial institutions appearing in records.
var Banks = crud.Resource{
	Key:         "banks",
	Title:       "Banks",
	Singular:    "Bank",
	Description: "Banks and their cases, judgments and contact details.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "name"},
		{Path: "short_name", Label: "Code"},
		{Path: "bank_type", Label: "Type", Kind: crud.KindBadge},
		{Path: "headquarters"},
		{Path: "contact.phone", Label: "Phone"},
		{Path: "total_cases", Label: "Cases", Kind: crud.KindNumber},
	},
	Filters: []crud.Filter{
		{Param: "bank_type", Label: "Bank type", Options: bankTypes},
	},
}

// Insurance lists insurance companies.
var Insurance = crud.Resource{
	Key:         "insurance",
	Title:       "Insurance",
	Singular:    "Insurance company",
	Description: "Insurance companies and their litigation history.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "name"},
		{Path: "insurance_type", Label: "Type", Kind: crud.KindBadge},
		{Path: "license_number"},
		{Path: "headquarters"},
		{Path: "total_cases", Label: "Cases", Kind: crud.KindNumber},
	},
	Filters: []crud.Filter{
		{Param: "insurance_type", Label: "Insurance type", Options: insuranceTypes},
	},
}

// Companies are registered businesses.
var Companies = crud.Resource{
	Key:         "companies",
	Title:       "Companies",
	Singular:    "Company",
	Description: "Registered companies, directors and related cases.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "name"},
		{Path: "registration_number"},
		{Path: "company_type", Label: "Type", Kind: crud.KindBadge},
		{Path: "industry"},
		{Path: "financials.annual_revenue", Label: "Revenue", Kind: crud.KindNumber},
	},
	Filters: []crud.Filter{
		{Param: "company_type", Label: "Company type", Options: companyTypes},
	},
}

// Payments are subscription and search payments.
var Payments = crud.Resource{
	Key:         "payments",
	Title:       "Payments",
	Singular:    "Payment",
	Description: "Subscription and pay-per-search payments.",
	Stats:       true,
	Columns: []crud.Column{
		{Path: "reference"},
		{Path: "user.email", Label: "Customer"},
		{Path: "amount", Kind: crud.KindNumber},
		{Path: "currency"},
		{Path: "payment_method", Label: "Method", Kind: crud.KindBadge},
		{Path: "status", Kind: crud.KindBadge},
		{Path: "created_at", Label: "Date", Kind: crud.KindDate},
	},
	Filters: []crud.Filter{
		{Param: "status", Options: paymentStatus},
		{Param: "payment_method", Label: "Method", Options: paymentMethods},
	},
}

// Settings are application configuration entries.
var Settings = crud.Resource{
	Key:         "settings",
	Title:       "Settings",
	Singular:    "Setting",
	Description: "Application configuration values.",
	Editable:    true,
	Columns: []crud.Column{
		{Path: "key"},
		{Path: "value"},
		{Path: "category", Kind: crud.KindBadge},
		{Path: "is_public", Label: "Public", Kind: crud.KindBool},
		{Path: "updated_at", Label: "Updated", Kind: crud.KindDate},
	},
	Filters: []crud.Filter{
		{Param: "category", Options: settingGroups},
	},
	Fields: []crud.Field{
		{Name: "key", Type: crud.FieldText, Rules: "required,max=100"},
		{Name: "value", Type: crud.FieldTextarea, Rules: "required"},
		{Name: "category", Type: crud.FieldSelect, Rules: "required", Options: settingGroups},
		{Name: "description", Type: crud.FieldTextarea, Rules: "omitempty,max=500"},
		{Name: "is_public", Label: "Visible to clients", Type: crud.FieldCheckbox},
	},
}

// All lists the entities in sidebar order.
func All() []crud.Resource {
	return []crud.Resource{Users, Cases, People, Banks, Insurance, Companies, Payments, Settings}
}

// Lookup returns the resource registered under key.
func Lookup(key string) (crud.Resource, bool) {
	for _, res := range All() {
		if res.Key == key {
			return res, true
		}
	}
	return crud.Resource{}, false
}

// Navigation returns the sidebar entries.
func Navigation() []view.NavItem {
	items := []view.NavItem{{Label: "Overview", Href: "/admin", AdminOnly: true}}
	for _, res := range All() {
		items = append(items, view.NavItem{Label: res.Title, Href: res.Path(), AdminOnly: true})
	}
	return append(items,
		view.NavItem{Label: "Files", Href: "/files", AdminOnly: true},
		view.NavItem{Label: "Profile", Href: "/profile"},
		view.NavItem{Label: "Services", Href: "/services"},
		view.NavItem{Label: "Specification", Href: "/specification"},
	)
}
