package history

import (
	"encoding/xml"
	"fmt"
	"time"
)

const (
	gpxContentType = "application/gpx+xml"
	gpxNamespace   = "http://www.topografix.com/GPX/1/1"
	gpxCreator     = "Transporte AC"
)

type gpxDoc struct {
	XMLName  xml.Name    `xml:"gpx"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	Creator  string      `xml:"creator,attr"`
	Metadata gpxMetadata `xml:"metadata"`
	Track    gpxTrack    `xml:"trk"`
}

type gpxMetadata struct {
	Name string `xml:"name"`
	Time string `xml:"time"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Desc    string     `xml:"desc,omitempty"`
	Type    string     `xml:"type,omitempty"`
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Time string  `xml:"time"`
	Desc string  `xml:"desc,omitempty"`
}

func encodeGPX(sess Session, points []TrackPoint) ([]byte, error) {
	doc := gpxDoc{
		Xmlns:   gpxNamespace,
		Version: "1.1",
		Creator: gpxCreator,
		Metadata: gpxMetadata{
			Name: fmt.Sprintf("%s - %s", sess.RouteName, sess.DriverName),
			Time: sess.StartedAt.UTC().Format(time.RFC3339),
		},
		Track: gpxTrack{
			Name: sess.RouteName,
			Desc: fmt.Sprintf("%s %s", sess.DriverID, sess.BusPlate),
			Type: "bus",
		},
	}
	doc.Track.Segment.Points = make([]gpxPoint, 0, len(points))
	for _, p := range points {
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, gpxPoint{
			Lat:  p.Lat,
			Lon:  p.Lng,
			Time: p.RecordedAt.UTC().Format(time.RFC3339),
			Desc: fmt.Sprintf("%d km/h", p.SpeedKmh),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
