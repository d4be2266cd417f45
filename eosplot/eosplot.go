/*
 * eosplot.go, part of pseudogen.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

// Package eosplot draws the energy-volume samples of a bulk calculation
// together with the fitted equation of state.
package eosplot

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rmera/pseudogen/eos"
)

//Size is the side of the square images, in inches.
const Size = 5

//ErrNoData is returned when there are no points to plot.
var ErrNoData = fmt.Errorf("eosplot: no data points")

func basicPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Volume (Å³/atom)"
	p.Y.Label.Text = "Energy (eV/atom)"
	p.Add(plotter.NewGrid())
	return p
}

//Plot returns a plot of the points pts and, if fit is not nil, of the Birch-Murnaghan
//curve with its parameters, over the volume range of the points.
func Plot(pts []eos.Point, fit *eos.Params, title string) (*plot.Plot, error) {
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	p := basicPlot(title)
	xys := make(plotter.XYs, len(pts))
	vmin, vmax := pts[0].V, pts[0].V
	for i, pt := range pts {
		xys[i].X = pt.V
		xys[i].Y = pt.E
		vmin = min(vmin, pt.V)
		vmax = max(vmax, pt.V)
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	s.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	p.Add(s)
	p.Legend.Add("calculated", s)
	if fit != nil {
		f := plotter.NewFunction(fit.Energy)
		f.XMin = vmin
		f.XMax = vmax
		f.Samples = 200
		f.Color = color.RGBA{B: 255, A: 255}
		f.Width = vg.Points(1.5)
		p.Add(f)
		p.Legend.Add(fmt.Sprintf("BM V0=%.3f B0=%.1f B1=%.2f", fit.V0, fit.B0, fit.B1), f)
	}
	p.Legend.Top = true
	return p, nil
}

//Save writes the plot of pts and fit to filename. The format is taken from the extension,
//PNG if there is none.
func Save(pts []eos.Point, fit *eos.Params, title, filename string) error {
	p, err := Plot(pts, fit, title)
	if err != nil {
		return err
	}
	if filepath.Ext(filename) == "" {
		filename += ".png"
	}
	if err := p.Save(Size*vg.Inch, Size*vg.Inch, filename); err != nil {
		return fmt.Errorf("eosplot: saving %s: %w", filename, err)
	}
	return nil
}
