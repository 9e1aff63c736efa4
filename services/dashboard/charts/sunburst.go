// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package charts

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
)

// SunburstSize is the width and height of the sunburst figure in pixels.
const SunburstSize = 800

const sunburstColorAxis = "coloraxis"

// sunburstNode is one ring segment while the hierarchy is being built.
type sunburstNode struct {
	id       string
	label    string
	parent   string
	value    float64
	color    float64
	children []*sunburstNode
}

// BuildSunburst builds the diet_group → age_group → sex sunburst for metric.
//
// # Description
//
// Each grouped row becomes a leaf whose size and color are the row's mean
// for metric. An inner node's size is the sum of its children and its color
// is the children's colors averaged with their sizes as weights. When a
// node's children sum to zero the plain mean of their colors is used.
//
// Node IDs are the "/"-joined path, so two age groups with the same label
// under different diets stay distinct. Nodes are emitted depth-first in the
// order of grouped.
//
// # Inputs
//
//   - grouped: Output of aggregate.ComputeGroupedMeans. Not modified.
//   - metric: One of datatypes.Metrics.
//
// # Outputs
//
//   - Figure: An 800x800 sunburst colored with ImpactScale.
//   - error: ErrUnknownMetric when metric is not recognized.
//
// # Limitations
//
//   - NaN means are drawn as 0.
func BuildSunburst(grouped []datatypes.GroupedRow, metric string) (Figure, error) {
	if !datatypes.IsMetric(metric) {
		return Figure{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	roots := buildHierarchy(grouped, metric)

	trace := Trace{
		Type:         "sunburst",
		BranchValues: "total",
		Marker:       &Marker{ColorAxis: sunburstColorAxis},
		HoverTemplate: "labels=%{label}<br>" + metric + "=%{value}<br>parent=%{parent}<br>id=%{id}<br>" +
			metric + "=%{color}<extra></extra>",
	}
	var emit func(n *sunburstNode)
	emit = func(n *sunburstNode) {
		trace.IDs = append(trace.IDs, n.id)
		trace.Labels = append(trace.Labels, n.label)
		trace.Parents = append(trace.Parents, n.parent)
		trace.Values = append(trace.Values, n.value)
		trace.Marker.Colors = append(trace.Marker.Colors, n.color)
		for _, c := range n.children {
			emit(c)
		}
	}
	for _, r := range roots {
		emit(r)
	}
	return Figure{
		Data: []Trace{trace},
		Layout: Layout{
			Width:  SunburstSize,
			Height: SunburstSize,
			ColorAxis: &ColorAxis{
				ColorScale: ImpactScale,
				ColorBar:   ColorBar{Title: ColorBarTitle{Text: metric}},
			},
		},
	}, nil
}

// buildHierarchy groups the rows into diet and age nodes and fills in the
// aggregated sizes and colors.
func buildHierarchy(grouped []datatypes.GroupedRow, metric string) []*sunburstNode {
	var roots []*sunburstNode
	byID := make(map[string]*sunburstNode)

	child := func(parent *sunburstNode, label string) *sunburstNode {
		parentID := ""
		if parent != nil {
			parentID = parent.id
		}
		id := label
		if parentID != "" {
			id = strings.Join([]string{parentID, label}, "/")
		}
		if n, ok := byID[id]; ok {
			return n
		}
		n := &sunburstNode{id: id, label: label, parent: parentID}
		byID[id] = n
		if parent == nil {
			roots = append(roots, n)
		} else {
			parent.children = append(parent.children, n)
		}
		return n
	}

	for _, row := range grouped {
		v := finite(row.Mean(metric))
		diet := child(nil, row.DietGroup)
		age := child(diet, row.AgeGroup)
		leaf := child(age, row.Sex)
		leaf.value = v
		leaf.color = v
	}

	for _, r := range roots {
		aggregateNode(r)
	}
	return roots
}

// aggregateNode sets an inner node's size and color from its children.
func aggregateNode(n *sunburstNode) {
	if len(n.children) == 0 {
		return
	}
	var total, weighted, plain float64
	for _, c := range n.children {
		aggregateNode(c)
		total += c.value
		weighted += c.value * c.color
		plain += c.color
	}
	n.value = total
	if total != 0 {
		n.color = weighted / total
	} else {
		n.color = plain / float64(len(n.children))
	}
}
