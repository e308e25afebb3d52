// Package parser turns legacy structural-analysis text files into
// canonical models. It is deliberately tolerant: section parsing comes
// first, and a cascade of member-recovery strategies runs when the
// tables yield nothing.
package parser

import (
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"framesight/internal/model"
)

// coordSampleLimit bounds how many data lines feed the unit-magnitude
// heuristic.
const coordSampleLimit = 50

// DefaultImperialThreshold is the mean absolute coordinate magnitude
// above which an undeclared unit system is guessed as imperial.
const DefaultImperialThreshold = 200

type Parser struct {
	log *zap.Logger

	// ImperialThreshold overrides DefaultImperialThreshold when set by
	// configuration.
	ImperialThreshold float64
}

func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log, ImperialThreshold: DefaultImperialThreshold}
}

type section int

const (
	sectionNone section = iota
	sectionJoints
	sectionMembers
	sectionMaterials
	sectionProperties
)

func (s section) String() string {
	switch s {
	case sectionJoints:
		return "JOINTS"
	case sectionMembers:
		return "MEMBERS"
	case sectionMaterials:
		return "MATERIALS"
	case sectionProperties:
		return "PROPERTIES"
	default:
		return "NONE"
	}
}

// Parse reads either dialect from the same entry point. It fails only
// when no nodes exist or every member strategy comes up empty.
func (p *Parser) Parse(content []byte, filename string) (*model.Model, error) {
	dialect := DetectDialect(content, filename)
	lines := strings.Split(string(content), "\n")

	units, declared := scanUnits(lines)

	m := &model.Model{
		ID:         strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		Name:       filepath.Base(filename),
		SourceFile: filename,
		Dialect:    dialect,
		Units:      units,
	}

	st := newParseState()
	state := sectionNone
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || isComment(line) {
			continue
		}
		upper := strings.ToUpper(line)

		// Self-describing key=value rows are accepted in any section.
		if kv := parseKeyValues(line); kv != nil {
			if st.consumeKeyValueRow(kv) {
				continue
			}
		}

		if next, ok := sectionStart(upper); ok {
			state = next
			continue
		}
		if isResetKeyword(upper) {
			state = sectionNone
			continue
		}

		switch state {
		case sectionJoints:
			for _, chunk := range splitChunks(line) {
				st.consumeJointChunk(chunk)
			}
		case sectionMembers:
			for _, chunk := range splitChunks(line) {
				st.consumeMemberChunk(chunk)
			}
		case sectionMaterials:
			st.consumeMaterialLine(upper)
		case sectionProperties:
			st.consumePropertyLine(upper)
		}
	}

	if len(st.nodes) == 0 {
		return nil, &ParseError{Dialect: dialect, LastSection: state.String(), Err: ErrNoNodes}
	}

	if !declared && units.Length == model.LengthMeter {
		threshold := p.ImperialThreshold
		if threshold <= 0 {
			threshold = DefaultImperialThreshold
		}
		if avg := st.meanCoordMagnitude(); avg > threshold {
			m.Units = model.ImperialUnits()
			m.Units.Inferred = true
			p.log.Info("unit system inferred from coordinate magnitude",
				zap.Float64("avg_magnitude", avg),
				zap.Float64("threshold", threshold))
		}
	}

	m.Nodes = st.nodes
	m.Members = st.members

	strategies := []string{"section-tables"}
	if len(m.Members) == 0 {
		members, tried := recoverMembers(lines, m.Nodes, p.log)
		strategies = append(strategies, tried...)
		if len(members) == 0 {
			return nil, &ParseError{
				Dialect:     dialect,
				LastSection: state.String(),
				Strategies:  strategies,
				Err:         ErrNoMembers,
			}
		}
		m.Members = members
	}

	st.applySectionHints(m.Members)
	for i := range m.Members {
		if m.Members[i].Section == "" {
			m.Members[i].Section = model.DefaultSection
		}
	}

	p.log.Debug("parsed structural model",
		zap.String("file", filename),
		zap.String("dialect", dialect.String()),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("members", len(m.Members)),
		zap.Strings("strategies", strategies))

	return m, nil
}

// parseState accumulates nodes, members, and hint tables during the
// single pass over the file.
type parseState struct {
	nodes   []model.Node
	members []model.Member

	nodeSeen   map[string]bool
	memberSeen map[string]bool

	// sectionByMember maps member ids to section names gathered from
	// property tables; applied after member recovery.
	sectionByMember map[string]string
	material        string

	coordSample []float64
	sampledRows int
}

func newParseState() *parseState {
	return &parseState{
		nodeSeen:        make(map[string]bool),
		memberSeen:      make(map[string]bool),
		sectionByMember: make(map[string]string),
	}
}

func (st *parseState) addNode(id string, x, y, z float64) {
	if id == "" || st.nodeSeen[id] {
		// first occurrence wins
		return
	}
	st.nodeSeen[id] = true
	st.nodes = append(st.nodes, model.Node{ID: id, X: x, Y: y, Z: z})
	if st.sampledRows < coordSampleLimit {
		st.coordSample = append(st.coordSample, abs(x), abs(y), abs(z))
		st.sampledRows++
	}
}

func (st *parseState) addMember(id, start, end, typeHint, sect string) {
	if id == "" || st.memberSeen[id] {
		return
	}
	if !st.nodeSeen[start] || !st.nodeSeen[end] {
		// both endpoints must already exist
		return
	}
	st.memberSeen[id] = true
	st.members = append(st.members, model.Member{
		ID:          id,
		StartNodeID: start,
		EndNodeID:   end,
		TypeHint:    typeHint,
		Section:     sect,
	})
}

func (st *parseState) meanCoordMagnitude() float64 {
	if len(st.coordSample) == 0 {
		return 0
	}
	var sum float64
	for _, v := range st.coordSample {
		sum += v
	}
	return sum / float64(len(st.coordSample))
}

// consumeJointChunk parses one `id x y z` chunk, comma- or
// whitespace-separated.
func (st *parseState) consumeJointChunk(chunk string) {
	fields := splitFields(chunk)
	if len(fields) < 4 {
		return
	}
	x, errX := strconv.ParseFloat(fields[1], 64)
	y, errY := strconv.ParseFloat(fields[2], 64)
	z, errZ := strconv.ParseFloat(fields[3], 64)
	if errX != nil || errY != nil || errZ != nil {
		return
	}
	st.addNode(fields[0], x, y, z)
}

// consumeMemberChunk parses one `id startId endId` chunk.
func (st *parseState) consumeMemberChunk(chunk string) {
	fields := splitFields(chunk)
	if len(fields) < 3 {
		return
	}
	st.addMember(fields[0], fields[1], fields[2], "", "")
}

// consumeKeyValueRow handles SAP2000-style self-describing rows.
// Returns true when the row was recognized as data.
func (st *parseState) consumeKeyValueRow(kv map[string]string) bool {
	if id, ok := kv["JOINT"]; ok {
		xs, okX := kv["X"]
		ys, okY := kv["Y"]
		zs, okZ := kv["Z"]
		if okX && okY && okZ {
			x, errX := strconv.ParseFloat(xs, 64)
			y, errY := strconv.ParseFloat(ys, 64)
			z, errZ := strconv.ParseFloat(zs, 64)
			if errX == nil && errY == nil && errZ == nil {
				st.addNode(id, x, y, z)
				return true
			}
		}
		return false
	}
	if id, ok := kv["FRAME"]; ok {
		start, okI := kv["JOINTI"]
		end, okJ := kv["JOINTJ"]
		if okI && okJ {
			sect := kv["ANALSECT"]
			if sect == "" {
				sect = kv["SECT"]
			}
			st.addMember(id, start, end, kv["TYPE"], sect)
			return true
		}
		// frame section-assignment rows reference members parsed earlier
		if sect := kv["ANALSECT"]; sect != "" && st.memberSeen[id] {
			st.sectionByMember[id] = sect
			return true
		}
		return false
	}
	return false
}

// consumeMaterialLine records a coarse material hint, e.g. the STAAD
// `ISOTROPIC STEEL` block opener.
func (st *parseState) consumeMaterialLine(upper string) {
	fields := strings.Fields(upper)
	if len(fields) >= 2 && fields[0] == "ISOTROPIC" {
		st.material = fields[1]
	}
}

// consumePropertyLine extracts `<ids> TABLE ST <section>` assignments.
func (st *parseState) consumePropertyLine(upper string) {
	idx := strings.Index(upper, "TABLE ST ")
	if idx < 0 {
		return
	}
	sect := strings.Fields(upper[idx+len("TABLE ST "):])
	if len(sect) == 0 {
		return
	}
	for _, id := range expandIDList(strings.Fields(upper[:idx])) {
		if st.memberSeen[id] {
			st.sectionByMember[id] = sect[0]
		}
	}
}

func (st *parseState) applySectionHints(members []model.Member) {
	for i := range members {
		if sect, ok := st.sectionByMember[members[i].ID]; ok {
			members[i].Section = sect
		}
		if members[i].TypeHint == "" && st.material != "" {
			members[i].TypeHint = st.material
		}
	}
}

// expandIDList expands `1 TO 4` ranges inside a numeric id list.
func expandIDList(fields []string) []string {
	var out []string
	for i := 0; i < len(fields); i++ {
		if fields[i] == "TO" && i > 0 && i+1 < len(fields) {
			lo, errLo := strconv.Atoi(fields[i-1])
			hi, errHi := strconv.Atoi(fields[i+1])
			if errLo == nil && errHi == nil && hi > lo {
				for n := lo + 1; n <= hi; n++ {
					out = append(out, strconv.Itoa(n))
				}
				i++ // consume the upper bound
				continue
			}
		}
		out = append(out, fields[i])
	}
	return out
}

func sectionStart(upper string) (section, bool) {
	switch {
	case strings.Contains(upper, "JOINT COORDINATES"):
		return sectionJoints, true
	case strings.Contains(upper, "MEMBER INCIDENCES"):
		return sectionMembers, true
	case sapTable(upper, "CONNECTIVITY"):
		return sectionMembers, true
	case strings.HasPrefix(upper, "DEFINE MATERIAL"), strings.HasPrefix(upper, "CONSTANTS"),
		sapTable(upper, "MATERIAL"):
		return sectionMaterials, true
	case strings.HasPrefix(upper, "MEMBER PROPERT"), sapTable(upper, "FRAME SECTION"):
		return sectionProperties, true
	}
	return sectionNone, false
}

// sapTable matches a SAP2000 table header for the named table. The
// exporter writes `TABLE:  "NAME - QUALIFIER"` with a double space and
// quotes, so the name is searched rather than prefix-matched.
func sapTable(upper, name string) bool {
	return strings.HasPrefix(upper, "TABLE:") && strings.Contains(upper, name)
}

// resetKeywords are unrelated-section openers that drop the state
// machine back to NONE so their payload is never mistaken for data.
var resetKeywords = []string{
	"SUPPORT", "LOAD", "SELFWEIGHT", "PERFORM", "ANALYSIS",
	"PRINT", "PARAMETER", "FINISH", "END",
}

func isResetKeyword(upper string) bool {
	for _, kw := range resetKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, "!") ||
		strings.HasPrefix(line, "$") || strings.HasPrefix(line, "#")
}

// splitChunks splits a line into semicolon-chained entries.
func splitChunks(line string) []string {
	parts := strings.Split(line, ";")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitFields tokenizes a chunk on whitespace and commas.
func splitFields(chunk string) []string {
	return strings.FieldsFunc(chunk, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseKeyValues returns the upper-cased key map of a `K=V K=V` row, or
// nil when the line has no assignments.
func parseKeyValues(line string) map[string]string {
	if !strings.Contains(line, "=") {
		return nil
	}
	kv := make(map[string]string)
	for _, tok := range strings.Fields(line) {
		eq := strings.Index(tok, "=")
		if eq <= 0 || eq == len(tok)-1 {
			continue
		}
		key := strings.ToUpper(tok[:eq])
		kv[key] = strings.Trim(tok[eq+1:], `"`)
	}
	if len(kv) == 0 {
		return nil
	}
	return kv
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
