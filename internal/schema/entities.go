package schema

import "github.com/assetdesk/assetdesk/internal/importer"

// The alias lists below are collected from the header spellings observed in
// real exports: spreadsheet titles with spaces, snake_case database dumps,
// and the occasional all-caps variant. Matching is normalized, so only
// genuinely different spellings need listing.

func init() {
	Register(Definition{
		Mapping: importer.Mapping{
			Entity: "monitors",
			Label:  "Monitor Inventory",
			Fields: []importer.Field{
				{Name: "seatNumber", Aliases: []string{"seat", "seat no"}, Required: true},
				{Name: "knoxId", Aliases: []string{"knox"}},
				{Name: "serialNumber", Aliases: []string{"serial", "sn"}},
				{Name: "model", Aliases: []string{"monitor model"}},
				{Name: "location", Aliases: []string{"floor", "site"}},
				{Name: "remark", Aliases: []string{"notes", "memo"}},
			},
		},
		NaturalKey: []string{"seatNumber"},
	})

	Register(Definition{
		Mapping: importer.Mapping{
			Entity: "approvals",
			Label:  "Approval Records",
			Fields: []importer.Field{
				{Name: "approvalId", Aliases: []string{"approval no", "doc id"}, Required: true},
				{Name: "requester", Aliases: []string{"requested by"}, Required: true},
				{Name: "itemName", Aliases: []string{"item", "equipment"}},
				{Name: "quantity", Aliases: []string{"qty", "count"}, Coerce: importer.IntOr(1)},
				{Name: "approvedAt", Aliases: []string{"approval date", "approved on"}, Coerce: importer.Date},
				{Name: "remark", Aliases: []string{"notes"}},
			},
		},
		NaturalKey: []string{"approvalId"},
	})

	Register(Definition{
		Mapping: importer.Mapping{
			Entity: "assignments",
			Label:  "Equipment Assignments",
			Fields: []importer.Field{
				{Name: "assignee", Aliases: []string{"user", "employee"}, Required: true},
				{Name: "knoxId", Aliases: []string{"knox"}, Required: true},
				{Name: "serialNumber", Aliases: []string{"serial", "sn"}},
				{Name: "itemName", Aliases: []string{"item", "equipment"}},
				{Name: "quantity", Aliases: []string{"qty"}, Coerce: importer.IntOr(1)},
				{Name: "assignedAt", Aliases: []string{"assigned date"}, Coerce: importer.Date},
				{Name: "remark", Aliases: []string{"notes"}},
			},
		},
		NaturalKey: []string{"knoxId"},
	})

	Register(Definition{
		Mapping: importer.Mapping{
			Entity: "accessories",
			Label:  "Accessory Stock",
			Fields: []importer.Field{
				{Name: "itemName", Aliases: []string{"item", "accessory"}, Required: true},
				{Name: "category", Aliases: []string{"type"}},
				{Name: "quantity", Aliases: []string{"qty", "stock"}, Coerce: importer.IntOr(1)},
				{Name: "unitCost", Aliases: []string{"cost", "unit price"}, Coerce: importer.Money},
				{Name: "location", Aliases: []string{"storage", "site"}},
				{Name: "remark", Aliases: []string{"notes"}},
			},
		},
		NaturalKey: []string{"itemName"},
	})

	Register(Definition{
		Mapping: importer.Mapping{
			Entity: "licenses",
			Label:  "Software Licenses",
			Fields: []importer.Field{
				{Name: "licenseKey", Aliases: []string{"key", "license"}, Required: true},
				{Name: "product", Aliases: []string{"software", "product name"}},
				{Name: "seats", Aliases: []string{"seat count"}, Coerce: importer.Int},
				{Name: "price", Aliases: []string{"cost"}, Coerce: importer.Money},
				{Name: "expiresAt", Aliases: []string{"expiry", "expiration date"}, Coerce: importer.Date},
			},
		},
		NaturalKey: []string{"licenseKey"},
	})
}
