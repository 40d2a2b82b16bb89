package pbip

import (
	"sort"

	"github.com/fabriclift-labs/fabriclift/pkg/report"
)

// visualFile is one visual.json document in the PBIR layout.
type visualFile struct {
	Schema   string         `json:"$schema"`
	Name     string         `json:"name"`
	Position visualPosition `json:"position"`
	Visual   visualObject   `json:"visual"`
}

type visualPosition struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Z        int `json:"z"`
	Height   int `json:"height"`
	Width    int `json:"width"`
	TabOrder int `json:"tabOrder"`
}

type visualObject struct {
	VisualType              string       `json:"visualType"`
	DrillFilterOtherVisuals bool         `json:"drillFilterOtherVisuals"`
	AutoSelectVisualType    bool         `json:"autoSelectVisualType,omitempty"`
	Query                   *visualQuery `json:"query,omitempty"`
}

type visualQuery struct {
	QueryState map[string]roleProjections `json:"queryState"`
}

type roleProjections struct {
	Projections []fieldProjection `json:"projections"`
}

type fieldProjection struct {
	Field          projectionField `json:"field"`
	QueryRef       string          `json:"queryRef"`
	NativeQueryRef string          `json:"nativeQueryRef"`
	Active         bool            `json:"active,omitempty"`
	DisplayName    string          `json:"displayName,omitempty"`
}

// projectionField holds exactly one of the three binding shapes.
type projectionField struct {
	Column      *entityProperty   `json:"Column,omitempty"`
	Measure     *entityProperty   `json:"Measure,omitempty"`
	Aggregation *aggregationField `json:"Aggregation,omitempty"`
}

type entityProperty struct {
	Expression sourceRefExpr `json:"Expression"`
	Property   string        `json:"Property"`
}

type sourceRefExpr struct {
	SourceRef sourceRef `json:"SourceRef"`
}

type sourceRef struct {
	Entity string `json:"Entity"`
}

type aggregationField struct {
	Expression aggregationExpr `json:"Expression"`
	Function   int             `json:"Function"`
}

type aggregationExpr struct {
	Column entityProperty `json:"Column"`
}

func visualFileFor(id string, v report.Visual) visualFile {
	obj := visualObject{
		VisualType:              v.Type,
		DrillFilterOtherVisuals: true,
	}
	// The table visuals pick a better layout on open when allowed to.
	if v.Type == "tableEx" || v.Type == "pivotTable" {
		obj.AutoSelectVisualType = true
	}

	if len(v.Roles) > 0 {
		state := make(map[string]roleProjections, len(v.Roles))
		roles := make([]string, 0, len(v.Roles))
		for role := range v.Roles {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			projections := v.Roles[role]
			out := make([]fieldProjection, 0, len(projections))
			for _, p := range projections {
				out = append(out, projectionJSON(p))
			}
			state[role] = roleProjections{Projections: out}
		}
		obj.Query = &visualQuery{QueryState: state}
	}

	return visualFile{
		Schema: schemaVisual,
		Name:   id,
		Position: visualPosition{
			X:        v.Position.X,
			Y:        v.Position.Y,
			Z:        v.Position.Z,
			Height:   v.Position.Height,
			Width:    v.Position.Width,
			TabOrder: v.Position.TabOrder,
		},
		Visual: obj,
	}
}

func projectionJSON(p report.Projection) fieldProjection {
	fp := fieldProjection{
		QueryRef:       p.QueryRef,
		NativeQueryRef: p.NativeRef,
		Active:         p.Active,
		DisplayName:    p.DisplayName,
	}
	ref := entityProperty{
		Expression: sourceRefExpr{SourceRef: sourceRef{Entity: p.Table}},
		Property:   p.Field,
	}
	switch p.Kind {
	case report.ProjectionMeasure:
		fp.Field.Measure = &ref
	case report.ProjectionAggregation:
		fp.Field.Aggregation = &aggregationField{
			Expression: aggregationExpr{Column: ref},
			Function:   p.Function,
		}
	default:
		fp.Field.Column = &ref
	}
	return fp
}
