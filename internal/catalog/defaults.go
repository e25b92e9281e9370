package catalog

const (
	companyMundial = "MUNDIAL P E L DE BENS MOVEIS LTDA"
	companyAC      = "A C PARCERIA E TERRAPLENAGEM LTDA"
	mapsBase       = "https://www.google.com/maps/d/u/1/edit?usp=sharing&mid="
)

func DefaultBuses() []Bus {
	return []Bus{
		{Plate: "TEZ-2J56", TagAC: "AC LO 583", TagToll: "1JI347", Color: "BRANCA", Company: companyMundial},
		{Plate: "TEZ-2J60", TagAC: "AC LO 585", TagToll: "1JI348", Color: "BRANCA", Company: companyMundial},
		{Plate: "TEZ-2J57", TagAC: "AC LO 584", TagToll: "1JI349", Color: "BRANCA", Company: companyMundial},
		{Plate: "SJD5G38", TagAC: "AC LO 610", TagToll: "1JI437", Color: "BRANCA", Company: companyMundial},
		{Plate: "SYA5A51", TagAC: "AC LO 611", TagToll: "1JI436", Color: "BRANCA", Company: companyMundial},
		{Plate: "TEZ2J58", TagAC: "AC LO 609", TagToll: "1JI420", Color: "BRANCA", Company: companyMundial},
		{Plate: "PZS6858", TagAC: "VL 080", TagToll: "-", Color: "BRANCA", Company: companyAC},
		{Plate: "PZW5819", TagAC: "VL 083", TagToll: "-", Color: "BRANCA", Company: companyAC},
	}
}

func DefaultRoutes() []Route {
	return []Route{
		{ID: "adm01", Name: "ROTA ADM 01", Category: CategoryAdmin, Description: "Rota administrativa 01", MapsURL: mapsBase + "18BCgBpobp1Olzmzy0RnPCUEd7Vnkc5s"},
		{ID: "adm02", Name: "ROTA ADM 02", Category: CategoryAdmin, Description: "Rota administrativa 02", MapsURL: mapsBase + "1WxbIX8nw0xyGBLMvvi1SF3DRuwmZ5oM"},
		{ID: "op01", Name: "ROTA 01", Category: CategoryOperational, Description: "Rota operacional 01", MapsURL: mapsBase + "1jCfFxq1ZwecS2IcHy7xGFLLgttsM-RQ"},
		{ID: "op02", Name: "ROTA 02", Category: CategoryOperational, Description: "Rota operacional 02", MapsURL: mapsBase + "1LCvNJxWBbZ_chpbdn_lk_Dm6NPA194g"},
		{ID: "op03", Name: "ROTA 03", Category: CategoryOperational, Description: "Rota operacional 03", MapsURL: mapsBase + "1bdwkrClh5AZml0mnDGlOzYcaR4w1BL0"},
		{ID: "op04", Name: "ROTA 04", Category: CategoryOperational, Description: "Rota operacional 04", MapsURL: mapsBase + "1ejibzdZkhX2QLnP9YgvvHdQpZELFvXo"},
		{ID: "op05", Name: "ROTA 05", Category: CategoryOperational, Description: "Rota operacional 05", MapsURL: mapsBase + "1L9xjAWFUupMc7eQbqVJz-SNWlYX5SHo"},
		{ID: "ret01", Name: "RETORNO OVERLAND - ROTA 01", Category: CategoryReturn, Description: "Rota de retorno Overland 01", MapsURL: mapsBase + "1ClQVIaRLOYYWHU7fvP87r1BVy85a_eg"},
		{ID: "ret02", Name: "RETORNO OVERLAND - ROTA 02", Category: CategoryReturn, Description: "Rota de retorno Overland 02", MapsURL: mapsBase + "1WOIMgeLgV01B8yk7HoX6tazdCHXQnok"},
	}
}
