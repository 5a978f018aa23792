package hive

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/jszwec/csvutil"
)

// sourceCSVRow is one line of a ctran_data CSV export. Empty cells decode to nil.
type sourceCSVRow struct {
	RowID          int64    `csv:"row_id"`
	ServiceDate    string   `csv:"service_date"`
	VehicleNumber  *int64   `csv:"vehicle_number"`
	TrainNumber    *int64   `csv:"train"`
	RouteNumber    *int64   `csv:"route_number"`
	Direction      *int64   `csv:"direction"`
	LocationID     *int64   `csv:"location_id"`
	StopTime       *int64   `csv:"stop_time"`
	ArriveTime     *int64   `csv:"arrive_time"`
	LeaveTime      *int64   `csv:"leave_time"`
	Dwell          *int64   `csv:"dwell"`
	Door           *int64   `csv:"door"`
	Lift           *int64   `csv:"lift"`
	Ons            *int64   `csv:"ons"`
	Offs           *int64   `csv:"offs"`
	EstimatedLoad  *int64   `csv:"estimated_load"`
	MaximumSpeed   *float64 `csv:"maximum_speed"`
	GPSLongitude   *float64 `csv:"gps_longitude"`
	GPSLatitude    *float64 `csv:"gps_latitude"`
	DataSource     *int64   `csv:"data_source"`
	ScheduleStatus *int64   `csv:"schedule_status"`
}

// ParseSourceCSV decodes stop events from a CSV stream with a ctran_data header.
// service_date accepts 2019-03-14 and 2019/3/14.
func ParseSourceCSV(reader io.Reader) ([]schema.Record, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var rows []sourceCSVRow
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode source CSV: %w", err)
	}

	records := make([]schema.Record, 0, len(rows))
	for i, row := range rows {
		date, err := parseSourceDate(row.ServiceDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		records = append(records, schema.Record{
			RowID:          row.RowID,
			ServiceDate:    date,
			VehicleNumber:  row.VehicleNumber,
			TrainNumber:    row.TrainNumber,
			RouteNumber:    row.RouteNumber,
			Direction:      row.Direction,
			LocationID:     row.LocationID,
			StopTime:       row.StopTime,
			ArriveTime:     row.ArriveTime,
			LeaveTime:      row.LeaveTime,
			Dwell:          row.Dwell,
			Door:           row.Door,
			Lift:           row.Lift,
			Ons:            row.Ons,
			Offs:           row.Offs,
			EstimatedLoad:  row.EstimatedLoad,
			MaximumSpeed:   row.MaximumSpeed,
			GPSLongitude:   row.GPSLongitude,
			GPSLatitude:    row.GPSLatitude,
			DataSource:     row.DataSource,
			ScheduleStatus: row.ScheduleStatus,
		})
	}
	return records, nil
}

func parseSourceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(schema.StoreDateLayout, s); err == nil {
		return t, nil
	}
	return schema.ParseInputDate(s)
}
