package battle

import (
	"fmt"
	"strconv"
	"time"

	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/samber/lo"
)

// Row maps column names to the raw text of one export row.
type Row map[string]string

func (r Row) missing(cols ...string) []string {
	return lo.Filter(cols, func(col string, _ int) bool {
		_, ok := r[col]
		return !ok
	})
}

// Decoder turns export rows into matches.
type Decoder struct {
	Validator
}

func NewDecoder(cat *catalog.Catalog) *Decoder {
	return &Decoder{Validator: NewValidator(cat)}
}

type matchKeys struct {
	lobby  LobbyKey
	rank   Rank
	mode   ModeKey
	stage  StageKey
	winner Team
}

// Decode decodes row number index. On failure it returns a *RowError holding the
// failures of every decoding stage that went wrong; no partial match is ever
// returned.
//
// Participants, team characteristics, medals and the key columns are all checked
// before giving up so one error carries everything wrong with the row. The
// remaining scalar columns are only parsed once all of those succeeded.
func (d *Decoder) Decode(index int, row Row) (Match, error) {
	if missing := row.missing(requiredColumns...); len(missing) > 0 {
		return Match{}, &RowError{Row: index, Stages: []*StageError{{
			Stage: StageColumns,
			Errs:  []error{&MissingColumnsError{Columns: missing}},
		}}}
	}

	var failed []*StageError
	addStage := func(stage Stage, errs []error) {
		if len(errs) > 0 {
			failed = append(failed, &StageError{Stage: stage, Errs: errs})
		}
	}

	participants, errs := d.decodeParticipants(row)
	addStage(StageParticipants, errs)

	teams, errs := d.decodeTeams(row)
	addStage(StageTeams, errs)

	medals, errs := d.decodeMedals(row)
	addStage(StageMedals, errs)

	keys, errs := d.decodeKeys(row)
	addStage(StageKeys, errs)

	if len(failed) > 0 {
		return Match{}, &RowError{Row: index, Stages: failed}
	}

	m, errs := assemble(row, keys)
	if len(errs) > 0 {
		return Match{}, &RowError{Row: index, Stages: []*StageError{{Stage: StageFields, Errs: errs}}}
	}

	m.Participants = participants
	m.Teams = teams
	m.Medals = medals

	return m, nil
}

func (d *Decoder) decodeParticipants(row Row) (participants [2 * TeamSize]Participant, errs []error) {
	for _, t := range Teams {
		for slot := 1; slot <= TeamSize; slot++ {
			p, err := d.DecodeParticipant(row, t, slot)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			participants[t.index()*TeamSize+slot-1] = p
		}
	}
	return participants, errs
}

// DecodeParticipant decodes the columns of participant slot (1..4) of team t.
// All failing fields are reported together in a *GroupError named after the
// participant, e.g. "A3".
func (d *Decoder) DecodeParticipant(row Row, t Team, slot int) (Participant, error) {
	id := participantID(t, slot)
	if slot < 1 || slot > TeamSize {
		return Participant{}, groupError(id, []error{
			fieldError("slot", strconv.Itoa(slot), fmt.Errorf("%w: slot must be between 1 and %d", ErrOutOfRange, TeamSize)),
		})
	}

	col := func(field string) string { return participantColumn(id, field) }

	cols := lo.Map(participantFields, func(f string, _ int) string { return col(f) })
	if missing := row.missing(cols...); len(missing) > 0 {
		return Participant{}, groupError(id, []error{&MissingColumnsError{Columns: missing}})
	}

	p := Participant{Team: t, Slot: slot}
	var errs []error

	loadout, err := d.Loadout(row[col("weapon")])
	if err != nil {
		errs = append(errs, fieldError(col("weapon"), row[col("weapon")], err))
	}
	p.Loadout = loadout

	counters := []struct {
		field string
		dst   *int
	}{
		{"kill-assist", &p.KillsAndAssists},
		{"kill", &p.Kills},
		{"assist", &p.Assists},
		{"death", &p.Deaths},
		{"special", &p.SpecialUses},
		{"inked", &p.TurfInked},
	}
	for _, c := range counters {
		raw := row[col(c.field)]
		n, err := ParseInt(raw)
		if err != nil {
			errs = append(errs, fieldError(col(c.field), raw, err))
			continue
		}
		*c.dst = n
	}

	abilities, err := d.Abilities(row[col("abilities")])
	if err != nil {
		errs = append(errs, fieldError(col("abilities"), row[col("abilities")], err))
	}
	p.Abilities = abilities

	if len(errs) > 0 {
		return Participant{}, groupError(id, errs)
	}
	return p, nil
}

func (d *Decoder) decodeTeams(row Row) (teams [2]TeamCharacteristics, errs []error) {
	for _, t := range Teams {
		tc, err := d.DecodeTeam(row, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		teams[t.index()] = tc
	}
	return teams, errs
}

// DecodeTeam decodes the characteristics columns of team t.
func (d *Decoder) DecodeTeam(row Row, t Team) (TeamCharacteristics, error) {
	cols := lo.Map(teamFields, func(f string, _ int) string { return teamColumn(t, f) })
	if missing := row.missing(cols...); len(missing) > 0 {
		return TeamCharacteristics{}, groupError(string(t), []error{&MissingColumnsError{Columns: missing}})
	}

	tc := TeamCharacteristics{Team: t, Theme: row[teamColumn(t, "theme")]}
	var errs []error

	if raw := row[teamColumn(t, "color")]; raw != "" {
		color, err := ParseColor(raw)
		if err != nil {
			errs = append(errs, fieldError(teamColumn(t, "color"), raw, err))
		}
		tc.Color = color
	}

	perf, err := decodePerformance(
		row[teamColumn(t, "count")],
		row[teamColumn(t, "inked")],
		row[teamColumn(t, "ink-percent")],
	)
	if err != nil {
		errs = append(errs, err)
	}
	tc.Performance = perf

	if len(errs) > 0 {
		return TeamCharacteristics{}, groupError(string(t), errs)
	}
	return tc, nil
}

// decodePerformance picks the performance variant from which raw fields are set:
// a count means a ranked mode, an ink percentage means turf war, nothing at all
// means no performance was recorded. A ranked count ignores the inked column;
// a count together with an ink percentage is rejected, as is inked alone.
func decodePerformance(rawCount, rawInked, rawPercent string) (Performance, error) {
	switch {
	case rawCount != "" && rawPercent != "":
		return nil, fmt.Errorf("%w: performance has both count %q and ink percent %q",
			ErrInvalidFormat, rawCount, rawPercent)

	case rawCount != "":
		count, err := ParseInt(rawCount)
		if err != nil {
			return nil, fieldError("count", rawCount, err)
		}
		return RankedPerformance{Count: count}, nil

	case rawPercent != "":
		percent, err := ParseFloat(rawPercent)
		if err != nil {
			return nil, fieldError("ink-percent", rawPercent, err)
		}

		perf := TurfWarPerformance{InkedPercent: percent}
		if rawInked != "" {
			inked, err := ParseInt(rawInked)
			if err != nil {
				return nil, fieldError("inked", rawInked, err)
			}
			perf.Inked = &inked
		}
		return perf, nil

	case rawInked == "":
		return nil, nil
	}

	return nil, fmt.Errorf("%w: inked %q without an ink percent", ErrInvalidFormat, rawInked)
}

func (d *Decoder) decodeMedals(row Row) (medals []Medal, errs []error) {
	for n := 1; n <= MedalSlots; n++ {
		medal, ok, err := d.DecodeMedal(row, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			medals = append(medals, medal)
		}
	}
	return medals, errs
}

// DecodeMedal decodes medal slot n. An empty grade means the slot holds no medal
// and ok is false.
func (d *Decoder) DecodeMedal(row Row, n int) (medal Medal, ok bool, err error) {
	gradeCol, nameCol := medalColumn(n, "grade"), medalColumn(n, "name")
	if missing := row.missing(gradeCol, nameCol); len(missing) > 0 {
		return Medal{}, false, &MissingColumnsError{Columns: missing}
	}

	raw := row[gradeCol]
	if raw == "" {
		return Medal{}, false, nil
	}

	grade, err := ParseMedalGrade(raw)
	if err != nil {
		return Medal{}, false, fieldError(gradeCol, raw, err)
	}

	return Medal{Name: row[nameCol], Grade: grade}, true, nil
}

func (d *Decoder) decodeKeys(row Row) (keys matchKeys, errs []error) {
	check := func(col string, err error) {
		if err != nil {
			errs = append(errs, fieldError(col, row[col], err))
		}
	}

	var err error
	keys.lobby, err = d.Lobby(row[ColLobby])
	check(ColLobby, err)
	keys.rank, err = ParseRank(row[ColRank])
	check(ColRank, err)
	keys.mode, err = d.Mode(row[ColMode])
	check(ColMode, err)
	keys.stage, err = d.Stage(row[ColStage])
	check(ColStage, err)
	keys.winner, err = ParseTeam(row[ColWin])
	check(ColWin, err)

	return keys, errs
}

func assemble(row Row, keys matchKeys) (Match, []error) {
	m := Match{
		Season:      row[ColSeason],
		GameVersion: row[ColGameVersion],
		Lobby:       keys.lobby,
		Mode:        keys.mode,
		Stage:       keys.stage,
		Winner:      keys.winner,
		Knockout:    ParseKnockout(row[ColKnockout]),
		Rank:        keys.rank,
		EventName:   row[ColEvent],
	}
	var errs []error

	period, err := ParsePeriod(row[ColPeriod])
	if err != nil {
		errs = append(errs, fieldError(ColPeriod, row[ColPeriod], err))
	}
	m.Period = period

	seconds, err := ParseInt(row[ColTime])
	if err == nil && seconds < 0 {
		err = fmt.Errorf("%w: negative duration", ErrOutOfRange)
	}
	if err != nil {
		errs = append(errs, fieldError(ColTime, row[ColTime], err))
	}
	m.Duration = time.Duration(seconds) * time.Second

	if raw := row[ColPower]; raw != "" {
		power, err := ParseFloat(raw)
		if err != nil {
			errs = append(errs, fieldError(ColPower, raw, err))
		}
		m.Power = &power
	}

	return m, errs
}
