package roof

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// featureColors maps each structural line type to its sketch color.
var featureColors = map[FeatureType]color.RGBA{
	FeatureRidge:  {200, 30, 30, 255},   // red
	FeatureHip:    {230, 130, 20, 255},  // orange
	FeatureValley: {30, 80, 200, 255},   // blue
	FeatureEave:   {60, 60, 60, 255},    // dark gray
	FeatureRake:   {130, 40, 160, 255},  // purple
}

// SketchRenderer draws a measurement result as a dimensioned roof diagram:
// footprint outline, facet fills, and color-coded structural lines with a
// foot-spaced grid. World units are feet in the local plane anchored at
// the footprint centroid.
type SketchRenderer struct {
	Result        *MeasurementResult
	PaddingFt     float64
	GridSpacingFt float64
	Resolution    canvas.Resolution
}

// NewSketchRenderer creates a renderer with default settings.
func NewSketchRenderer(r *MeasurementResult) *SketchRenderer {
	return &SketchRenderer{
		Result:        r,
		PaddingFt:     8,
		GridSpacingFt: 10,
		Resolution:    canvas.DPI(150),
	}
}

// sketchRenderer is the subset both the svg and rasterizer backends
// implement.
type sketchRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// toFeet projects a geographic point into the local foot-plane anchored at
// origin, y growing north.
func toFeet(g, origin GeoPoint) (float64, float64) {
	p := localMeters(g, origin)
	return p[0] * FtPerMeter, p[1] * FtPerMeter
}

func (r *SketchRenderer) bounds() (origin GeoPoint, minX, minY, maxX, maxY float64) {
	origin = PolygonCentroid(r.Result.Footprint.Polygon)
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	extend := func(g GeoPoint) {
		x, y := toFeet(g, origin)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, g := range r.Result.Footprint.Polygon {
		extend(g)
	}
	for _, f := range r.Result.Facets {
		for _, g := range f.Polygon {
			extend(g)
		}
	}
	for _, lf := range r.Result.LinearFeatures {
		extend(lf.Start)
		extend(lf.End)
	}
	return origin, minX, minY, maxX, maxY
}

// RenderToSVG writes the sketch as an SVG document.
func (r *SketchRenderer) RenderToSVG(w io.Writer) error {
	origin, minX, minY, maxX, maxY := r.bounds()
	width := (maxX - minX) + 2*r.PaddingFt
	height := (maxY - minY) + 2*r.PaddingFt

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, origin, minX, minY, maxX, maxY, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the sketch as a PNG, with feature length labels drawn
// after rasterization. Label text uses a raster font face directly because
// text in tdewolff/canvas requires loading a full font family.
func (r *SketchRenderer) RenderToPNG(w io.Writer) error {
	origin, minX, minY, maxX, maxY := r.bounds()
	width := (maxX - minX) + 2*r.PaddingFt
	height := (maxY - minY) + 2*r.PaddingFt

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, origin, minX, minY, maxX, maxY, width, height)

	dpmm := r.Resolution.DPMM()
	toPixel := func(x, y float64) (int, int) {
		return int(x * dpmm), int(height*dpmm) - int(y*dpmm)
	}
	for _, lf := range r.Result.LinearFeatures {
		sx, sy := toFeet(lf.Start, origin)
		ex, ey := toFeet(lf.End, origin)
		midX := (sx+ex)/2 - minX + r.PaddingFt
		midY := (sy+ey)/2 - minY + r.PaddingFt
		px, py := toPixel(midX, midY)
		drawLabel(rast, px, py, fmt.Sprintf("%.0f'", lf.LengthFt), featureColors[lf.Type])
	}

	return png.Encode(w, rast)
}

func (r *SketchRenderer) renderToCanvas(renderer sketchRenderer, origin GeoPoint, minX, minY, maxX, maxY, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(g GeoPoint) (float64, float64) {
		x, y := toFeet(g, origin)
		return (x - minX) + r.PaddingFt, (y - minY) + r.PaddingFt
	}

	// Grid under everything else.
	if r.GridSpacingFt > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 0.05
		gridStyle.Dashes = []float64{0.5, 0.5}

		for x := 0.0; x <= width; x += r.GridSpacingFt {
			p := &canvas.Path{}
			p.MoveTo(x, 0)
			p.LineTo(x, height)
			renderer.RenderPath(p, gridStyle, canvas.Identity)
		}
		for y := 0.0; y <= height; y += r.GridSpacingFt {
			p := &canvas.Path{}
			p.MoveTo(0, y)
			p.LineTo(width, y)
			renderer.RenderPath(p, gridStyle, canvas.Identity)
		}
	}

	// Facet fills.
	facetStyle := canvas.DefaultStyle
	facetStyle.Fill = canvas.Paint{Color: color.RGBA{196, 210, 224, 255}}
	facetStyle.Stroke = canvas.Paint{Color: color.RGBA{120, 140, 160, 255}}
	facetStyle.StrokeWidth = 0.15
	for _, f := range r.Result.Facets {
		renderer.RenderPath(r.polygonPath(f.Polygon, toCanvas), facetStyle, canvas.Identity)
	}

	// Footprint outline on top of the fills.
	fpStyle := canvas.DefaultStyle
	fpStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	fpStyle.Stroke = canvas.Paint{Color: canvas.Black}
	fpStyle.StrokeWidth = 0.4
	renderer.RenderPath(r.polygonPath(r.Result.Footprint.Polygon, toCanvas), fpStyle, canvas.Identity)

	// Structural lines, color-coded by type.
	for _, lf := range r.Result.LinearFeatures {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: featureColors[lf.Type]}
		style.StrokeWidth = 0.3
		if lf.Type == FeatureValley {
			style.Dashes = []float64{1.0, 0.5}
		}
		p := &canvas.Path{}
		x1, y1 := toCanvas(lf.Start)
		x2, y2 := toCanvas(lf.End)
		p.MoveTo(x1, y1)
		p.LineTo(x2, y2)
		renderer.RenderPath(p, style, canvas.Identity)
	}
}

func (r *SketchRenderer) polygonPath(poly Polygon, toCanvas func(GeoPoint) (float64, float64)) *canvas.Path {
	p := &canvas.Path{}
	for i, g := range poly {
		x, y := toCanvas(g)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	p.Close()
	return p
}

// drawLabel draws small text onto a rasterized image.
func drawLabel(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
