// Package battletest builds export rows for tests.
package battletest

import (
	"fmt"
	"strings"

	"github.com/condensedtea/turf-ratings/internal/battle"
)

var loadouts = []string{
	"sshooter", "wakaba", "splatcharger", "heroshooter_replica",
	"hokusai", "nzap85", "dynamo", "tristringer",
}

// Row returns a valid ranked splat zones row with every column populated.
// Participants A1..A4, B1..B4 use distinct loadouts and their numeric columns
// are offset by the slot so each participant decodes differently.
func Row() battle.Row {
	row := battle.Row{
		battle.ColSeason:      "Fresh Season 2023",
		battle.ColPeriod:      "2023-03-01T10:00:00+00:00",
		battle.ColGameVersion: "3.1.0",
		battle.ColLobby:       "bankara_challenge",
		battle.ColMode:        "area",
		battle.ColStage:       "masaba",
		battle.ColTime:        "180",
		battle.ColWin:         "alpha",
		battle.ColKnockout:    "TRUE",
		battle.ColRank:        "S+ 12",
		battle.ColPower:       "1834.5",
		battle.ColEvent:       "",

		"alpha-color":       "d0bf08ff",
		"alpha-theme":       "",
		"alpha-count":       "100",
		"alpha-inked":       "",
		"alpha-ink-percent": "",
		"bravo-color":       "3a0ccdff",
		"bravo-theme":       "",
		"bravo-count":       "37",
		"bravo-inked":       "",
		"bravo-ink-percent": "",

		"medal1-grade": "gold",
		"medal1-name":  "Big Bang",
		"medal2-grade": "",
		"medal2-name":  "",
	}

	i := 0
	for _, letter := range []string{"A", "B"} {
		for slot := 1; slot <= battle.TeamSize; slot++ {
			id := fmt.Sprintf("%s%d", letter, slot)
			row[id+"-weapon"] = loadouts[i]
			row[id+"-kill-assist"] = fmt.Sprint(5 + i)
			row[id+"-kill"] = fmt.Sprint(3 + i)
			row[id+"-assist"] = "2"
			row[id+"-death"] = fmt.Sprint(i)
			row[id+"-special"] = "1"
			row[id+"-inked"] = fmt.Sprint(1000 + 100*i)
			row[id+"-abilities"] = `{"ink_saver_main":1.3,"comeback":1}`
			i++
		}
	}

	return row
}

// With returns a copy of row with the given column/value pairs overridden.
func With(row battle.Row, kv ...string) battle.Row {
	out := make(battle.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// Without returns a copy of row without the given columns.
func Without(row battle.Row, cols ...string) battle.Row {
	out := With(row)
	for _, c := range cols {
		delete(out, c)
	}
	return out
}

// CSV renders rows as an export table with the standard header.
func CSV(rows ...battle.Row) string {
	cols := battle.Columns()

	var sb strings.Builder
	sb.WriteString(csvLine(cols))
	for _, row := range rows {
		values := make([]string, len(cols))
		for i, c := range cols {
			values[i] = row[c]
		}
		sb.WriteString(csvLine(values))
	}
	return sb.String()
}

func csvLine(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",") + "\n"
}
