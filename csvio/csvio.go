// Package csvio implements the CSV import/export surface: parsers that
// accept two row shapes each for containers and items (a native-unit shape
// and a centimeter/kilogram shape), and writers for the arrangement and
// undocking manifest exports.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	cargoxerrors "github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/undock"
)

const centimeterDivisor = 100.0

// ContainerImportResult reports per-row outcomes: rows that fail to parse
// are skipped and recorded rather than aborting the whole import.
type ContainerImportResult struct {
	Containers []*models.Container `json:"containers"`
	Skipped    []RowError          `json:"skipped"`
}

// ItemImportResult is the item-side counterpart of ContainerImportResult.
type ItemImportResult struct {
	Items   []*models.Item `json:"items"`
	Skipped []RowError     `json:"skipped"`
}

// RowError names a skipped row and why it didn't parse.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseContainers accepts either of two row shapes:
//   - native: id, width, height, depth, capacity, [zone, container_type]
//   - centimeter: zone, container_id, width_cm, depth_cm, height_cm
//     (capacity defaults to 10, container_type defaults to storage)
func ParseContainers(r io.Reader) (*ContainerImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err == io.EOF {
		return &ContainerImportResult{}, nil
	}
	if err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.InvalidInput, "read container CSV header", err)
	}
	idx := indexHeader(header)

	res := &ContainerImportResult{}
	rowNum := 1
	for {
		rowNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		c, reason := parseContainerRow(idx, record)
		if reason != "" {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Reason: reason})
			continue
		}
		res.Containers = append(res.Containers, c)
	}
	return res, nil
}

func parseContainerRow(idx map[string]int, record []string) (*models.Container, string) {
	get := func(col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(record) || record[i] == "" {
			return "", false
		}
		return record[i], true
	}

	if widthCM, ok1 := get("width_cm"); ok1 {
		depthCM, ok2 := get("depth_cm")
		heightCM, ok3 := get("height_cm")
		containerID, ok4 := get("container_id")
		if ok2 && ok3 {
			w, err1 := strconv.ParseFloat(widthCM, 64)
			d, err2 := strconv.ParseFloat(depthCM, 64)
			h, err3 := strconv.ParseFloat(heightCM, 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, "non-numeric centimeter dimension"
			}
			if !ok4 {
				containerID = uuid.NewString()
			}
			zone, _ := get("zone")
			return &models.Container{
				ID:       containerID,
				Width:    w / centimeterDivisor,
				Height:   h / centimeterDivisor,
				Depth:    d / centimeterDivisor,
				Capacity: 10,
				Kind:     models.KindStorage,
				Zone:     zone,
			}, ""
		}
	}

	id, ok := get("id")
	widthStr, ok2 := get("width")
	heightStr, ok3 := get("height")
	depthStr, ok4 := get("depth")
	if !ok || !ok2 || !ok3 || !ok4 {
		return nil, "unrecognized container row shape"
	}
	w, err1 := strconv.ParseFloat(widthStr, 64)
	h, err2 := strconv.ParseFloat(heightStr, 64)
	d, err3 := strconv.ParseFloat(depthStr, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, "non-numeric dimension"
	}
	capacity := 10
	if capStr, ok := get("capacity"); ok {
		v, err := strconv.Atoi(capStr)
		if err != nil {
			return nil, "non-numeric capacity"
		}
		capacity = v
	}
	kind := models.KindStorage
	if kindStr, ok := get("container_type"); ok && strings.EqualFold(kindStr, "waste") {
		kind = models.KindWaste
	}
	zone, _ := get("zone")
	return &models.Container{
		ID:       id,
		Width:    w,
		Height:   h,
		Depth:    d,
		Capacity: capacity,
		Kind:     kind,
		Zone:     zone,
	}, ""
}

// ParseItems accepts either of two row shapes:
//   - native: id, name, width, height, depth, weight, [priority,
//     preferred_zone, expiry_date, usage_limit]
//   - centimeter/kilogram: item_id, name, width_cm, depth_cm, height_cm,
//     mass_kg, [priority, preferred_zone, expiry_date, usage_limit]
func ParseItems(r io.Reader) (*ItemImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err == io.EOF {
		return &ItemImportResult{}, nil
	}
	if err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.InvalidInput, "read item CSV header", err)
	}
	idx := indexHeader(header)

	res := &ItemImportResult{}
	rowNum := 1
	for {
		rowNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		it, reason := parseItemRow(idx, record)
		if reason != "" {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Reason: reason})
			continue
		}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

func parseItemRow(idx map[string]int, record []string) (*models.Item, string) {
	get := func(col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(record) || record[i] == "" {
			return "", false
		}
		return record[i], true
	}

	var it models.Item

	if widthCM, ok1 := get("width_cm"); ok1 {
		depthCM, ok2 := get("depth_cm")
		heightCM, ok3 := get("height_cm")
		itemID, ok4 := get("item_id")
		name, ok5 := get("name")
		massKG, ok6 := get("mass_kg")
		if ok2 && ok3 && ok5 && ok6 {
			w, err1 := strconv.ParseFloat(widthCM, 64)
			d, err2 := strconv.ParseFloat(depthCM, 64)
			h, err3 := strconv.ParseFloat(heightCM, 64)
			mass, err4 := strconv.ParseFloat(massKG, 64)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				return nil, "non-numeric centimeter/kilogram field"
			}
			if !ok4 {
				itemID = uuid.NewString()
			}
			it = models.Item{
				ID:     itemID,
				Name:   name,
				Width:  w / centimeterDivisor,
				Height: h / centimeterDivisor,
				Depth:  d / centimeterDivisor,
				Mass:   mass,
			}
			applyOptionalItemFields(&it, get)
			return &it, ""
		}
	}

	id, ok := get("id")
	name, ok2 := get("name")
	widthStr, ok3 := get("width")
	heightStr, ok4 := get("height")
	depthStr, ok5 := get("depth")
	if !ok || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, "unrecognized item row shape"
	}
	w, err1 := strconv.ParseFloat(widthStr, 64)
	h, err2 := strconv.ParseFloat(heightStr, 64)
	d, err3 := strconv.ParseFloat(depthStr, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, "non-numeric dimension"
	}
	mass := 1.0
	if massStr, ok := get("weight"); ok {
		v, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return nil, "non-numeric weight"
		}
		mass = v
	}
	it = models.Item{ID: id, Name: name, Width: w, Height: h, Depth: d, Mass: mass}
	applyOptionalItemFields(&it, get)
	return &it, ""
}

func applyOptionalItemFields(it *models.Item, get func(string) (string, bool)) {
	if priorityStr, ok := get("priority"); ok {
		if v, err := strconv.Atoi(priorityStr); err == nil {
			it.Priority = v
		}
	}
	if zone, ok := get("preferred_zone"); ok {
		it.PreferredZone = zone
	}
	if expiryStr, ok := get("expiry_date"); ok && !strings.EqualFold(expiryStr, "n/a") {
		if t, err := time.Parse("2006-01-02", expiryStr); err == nil {
			it.ExpiryDate = &t
		}
	}
	if limitStr, ok := get("usage_limit"); ok {
		if v, err := strconv.Atoi(limitStr); err == nil {
			it.UsageLimit = &v
		}
	}
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

// WriteArrangement emits the arrangement export CSV: one row per placed
// item naming its container and the two opposite corners of its placed
// bounding box in container-local coordinates.
func WriteArrangement(w io.Writer, items []*models.Item) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item ID", "Container ID", "Coordinates (W1,D1,H1)", "(W2,D2,H2)"}); err != nil {
		return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "write arrangement header", err)
	}
	for _, it := range items {
		if it.Placement == nil {
			continue
		}
		p := it.Placement
		corner1 := fmt.Sprintf("(%.2f,%.2f,%.2f)", p.X, p.Y, p.Z)
		corner2 := fmt.Sprintf("(%.2f,%.2f,%.2f)", p.X+p.Width, p.Y+p.Depth, p.Z+p.Height)
		row := []string{it.ID, p.ContainerID, corner1, corner2}
		if err := writer.Write(row); err != nil {
			return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "write arrangement row", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteUndockingManifest emits the undocking manifest CSV: one row per
// ejected item, plus footer rows totaling count, mass, and the requested
// max-weight limit.
func WriteUndockingManifest(w io.Writer, plan *undock.Plan, itemNames map[string]string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item ID", "Item Name", "Weight (kg)", "Source Container ID"}); err != nil {
		return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "write manifest header", err)
	}
	for _, sel := range plan.Selected {
		name := itemNames[sel.ItemID]
		row := []string{sel.ItemID, name, fmt.Sprintf("%.2f", sel.Mass), sel.ContainerID}
		if err := writer.Write(row); err != nil {
			return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "write manifest row", err)
		}
	}
	footer := [][]string{
		{"Total Items", strconv.Itoa(len(plan.Selected))},
		{"Total Weight (kg)", fmt.Sprintf("%.2f", plan.TotalMass)},
		{"Max Weight Limit (kg)", fmt.Sprintf("%.2f", plan.MaxWeight)},
	}
	for _, row := range footer {
		if err := writer.Write(row); err != nil {
			return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "write manifest footer", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
