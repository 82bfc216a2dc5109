package scenario

import "github.com/jwebster45206/adventure-engine/pkg/builder"

// Office returns the two-room office game: find the drawer key, unlock the
// TPS report, and use the report to get into production.
func Office() *Scenario {
	return &Scenario{
		Name:        "The Office",
		Description: "Get your TPS report signed off and ship to production.",
		Start:       "the testing room",
		Rooms: []builder.RoomSpec{
			{
				Name:        "the testing room",
				Description: "Room with a Pythonista writing test cases.",
			},
			{
				Name:        "the production room",
				Description: "Room with production servers humming away.",
				Final:       true,
			},
		},
		Exits: []builder.ExitSpec{
			{
				Name:        "North",
				Description: "A heavy door marked PRODUCTION. It needs a TPS report.",
				From:        "the testing room",
				To:          "the production room",
				Locked:      true,
			},
		},
		Items: []builder.ItemSpec{
			{
				Name:        "TPS Report",
				Description: "A TPS report. Someone remembered the new cover sheet.",
				UseMessage:  "You slide the TPS Report under the door and hear the lock turn.",
				InRoom:      "the testing room",
				Unlocks:     "North",
				Locked:      true,
			},
			{
				Name:        "Drawer Key",
				Description: "A small brass key with a paper tag that says DESK.",
				UseMessage:  "The desk drawer slides open.",
				InRoom:      "the testing room",
				Unlocks:     "TPS Report",
			},
		},
	}
}
