package battle

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/condensedtea/turf-ratings/internal/catalog"
)

// The empty string is a valid rank: the battle was not ranked.
var rankPattern = regexp.MustCompile(`^(?:[CBAS][+-]?|S\+ (?:[0-9]|[1-4][0-9]|50))?$`)

var colorPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

var periodLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func ParseTeam(raw string) (Team, error) {
	switch t := Team(raw); t {
	case Alpha, Bravo:
		return t, nil
	}
	return "", unknownKey(raw)
}

func ParseMedalGrade(raw string) (MedalGrade, error) {
	switch g := MedalGrade(raw); g {
	case Gold, Silver:
		return g, nil
	}
	return "", unknownKey(raw)
}

// ParseRank accepts C, B, A and S with an optional + or - suffix, "S+ 0" through
// "S+ 50", and the empty string.
func ParseRank(raw string) (Rank, error) {
	if !rankPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q is not a rank", ErrInvalidFormat, raw)
	}
	return Rank(raw), nil
}

// ParseColor accepts eight lowercase hex digits (rrggbbaa).
func ParseColor(raw string) (Color, error) {
	if !colorPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q is not a rrggbbaa color", ErrInvalidFormat, raw)
	}
	return Color(raw), nil
}

func ParseInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, raw)
	}
	return n, nil
}

func ParseFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, raw)
	}
	return f, nil
}

// ParseKnockout is true only for a case-insensitive "true".
func ParseKnockout(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

// ParsePeriod parses the ISO-8601 start of the two-hour period a battle was played in.
func ParsePeriod(raw string) (time.Time, error) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp", ErrInvalidFormat, raw)
}

func unknownKey(raw string) error {
	return fmt.Errorf("%w %q", ErrUnknownKey, raw)
}

// Validator checks catalog backed keys.
type Validator struct {
	cat *catalog.Catalog
}

func NewValidator(cat *catalog.Catalog) Validator {
	return Validator{cat: cat}
}

func (v Validator) Loadout(raw string) (LoadoutKey, error) {
	if !v.cat.IsLoadout(raw) {
		return "", unknownKey(raw)
	}
	return LoadoutKey(raw), nil
}

func (v Validator) Ability(raw string) (AbilityKey, error) {
	if !v.cat.IsAbility(raw) {
		return "", unknownKey(raw)
	}
	return AbilityKey(raw), nil
}

func (v Validator) Stage(raw string) (StageKey, error) {
	if !v.cat.IsStage(raw) {
		return "", unknownKey(raw)
	}
	return StageKey(raw), nil
}

func (v Validator) Lobby(raw string) (LobbyKey, error) {
	if !v.cat.IsLobby(raw) {
		return "", unknownKey(raw)
	}
	return LobbyKey(raw), nil
}

func (v Validator) Mode(raw string) (ModeKey, error) {
	if !v.cat.IsMode(raw) {
		return "", unknownKey(raw)
	}
	return ModeKey(raw), nil
}

// Abilities parses a JSON object of ability key to weight, e.g.
// {"ink_saver_main":1.3,"comeback":1}. The whole blob is rejected when any key
// is unknown or any weight is not a non-negative number; every unknown key is
// named in the error.
func (v Validator) Abilities(raw string) (map[AbilityKey]float64, error) {
	var loaded map[string]any
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		return nil, fmt.Errorf("%w: abilities JSON: %v", ErrInvalidFormat, err)
	}
	if loaded == nil {
		return nil, fmt.Errorf("%w: abilities JSON is not an object", ErrInvalidFormat)
	}

	var badKeys []string
	for key := range loaded {
		if !v.cat.IsAbility(key) {
			badKeys = append(badKeys, strconv.Quote(key))
		}
	}
	if len(badKeys) > 0 {
		sort.Strings(badKeys)
		return nil, fmt.Errorf("%w in abilities JSON: %s", ErrUnknownKey, strings.Join(badKeys, ", "))
	}

	abilities := make(map[AbilityKey]float64, len(loaded))
	for key, value := range loaded {
		weight, err := abilityWeight(value)
		if err != nil {
			return nil, fmt.Errorf("ability %s: %w", key, err)
		}
		abilities[AbilityKey(key)] = weight
	}

	return abilities, nil
}

func abilityWeight(value any) (float64, error) {
	var weight float64
	switch v := value.(type) {
	case float64:
		weight = v
	case string:
		f, err := ParseFloat(v)
		if err != nil {
			return 0, err
		}
		weight = f
	default:
		return 0, fmt.Errorf("%w: %v", ErrNotNumber, value)
	}

	if weight < 0 {
		return 0, fmt.Errorf("%w: negative weight %v", ErrOutOfRange, weight)
	}
	return weight, nil
}
