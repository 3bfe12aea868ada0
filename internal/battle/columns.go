package battle

import "fmt"

// Top level columns of the stat.ink battle export.
const (
	ColSeason      = "# season"
	ColPeriod      = "period"
	ColGameVersion = "game-ver"
	ColLobby       = "lobby"
	ColMode        = "mode"
	ColStage       = "stage"
	ColTime        = "time"
	ColWin         = "win"
	ColKnockout    = "knockout"
	ColRank        = "rank"
	ColPower       = "power"
	ColEvent       = "event"
)

// MedalSlots is the number of medal column pairs in a row.
const MedalSlots = 2

var participantFields = []string{"weapon", "kill-assist", "kill", "assist", "death", "special", "inked", "abilities"}

var teamFields = []string{"color", "theme", "count", "inked", "ink-percent"}

func participantColumn(id, field string) string {
	return id + "-" + field
}

func teamColumn(t Team, field string) string {
	return string(t) + "-" + field
}

func medalColumn(n int, field string) string {
	return fmt.Sprintf("medal%d-%s", n, field)
}

// Columns returns every column a row must carry, in export order.
func Columns() []string {
	cols := []string{
		ColSeason, ColPeriod, ColGameVersion, ColLobby, ColMode, ColStage,
		ColTime, ColWin, ColKnockout, ColRank, ColPower,
	}

	for _, t := range Teams {
		for _, f := range teamFields {
			cols = append(cols, teamColumn(t, f))
		}
	}

	for _, t := range Teams {
		for slot := 1; slot <= TeamSize; slot++ {
			id := participantID(t, slot)
			for _, f := range participantFields {
				cols = append(cols, participantColumn(id, f))
			}
		}
	}

	for n := 1; n <= MedalSlots; n++ {
		cols = append(cols, medalColumn(n, "grade"), medalColumn(n, "name"))
	}

	return append(cols, ColEvent)
}

var requiredColumns = Columns()
