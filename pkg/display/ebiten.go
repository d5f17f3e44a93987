package display

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/session"
)

// Controller is the session surface the panel drives
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Close() error
	Status() session.Status
	Toggles() *overlay.Toggles
}

// Panel layout
const (
	margin      = 10
	panelWidth  = MaxFrameWidth + 2*margin
	panelHeight = 600
	statusY     = margin + MaxFrameHeight + 10
	togglesY    = statusY + 24
	buttonsY    = togglesY + 30
	checkSize   = 14
	buttonW     = 110
	buttonH     = 28
)

var (
	colorBackground = color.RGBA{0x20, 0x22, 0x26, 0xff}
	colorVideo      = color.RGBA{0x08, 0x08, 0x08, 0xff}
	colorBorder     = color.RGBA{0x80, 0x80, 0x80, 0xff}
	colorEnabled    = color.RGBA{0x2e, 0x7d, 0x32, 0xff}
	colorStop       = color.RGBA{0xb7, 0x1c, 0x1c, 0xff}
	colorDisabled   = color.RGBA{0x45, 0x45, 0x45, 0xff}
	colorBanner     = color.RGBA{0x8b, 0x10, 0x10, 0xe0}
)

type widget struct {
	rect  image.Rectangle
	label string
}

func (w widget) hit(p image.Point) bool {
	return p.In(w.rect)
}

// Panel is the Ebitengine control panel: video area, status line, two
// overlay checkboxes and start/stop buttons.
type Panel struct {
	ctx   context.Context
	ctrl  Controller
	slot  *Slot
	title string

	videoRect image.Rectangle
	boxes     widget
	points    widget
	start     widget
	stop      widget

	frame       *image.RGBA
	ebitenImage *ebiten.Image
	status      session.Status
}

// NewPanel creates a panel driving ctrl and showing frames from slot.
func NewPanel(ctx context.Context, ctrl Controller, slot *Slot, title string) *Panel {
	toggleW := 170
	return &Panel{
		ctx:       ctx,
		ctrl:      ctrl,
		slot:      slot,
		title:     title,
		videoRect: image.Rect(margin, margin, margin+MaxFrameWidth, margin+MaxFrameHeight),
		boxes:     widget{rect: image.Rect(margin, togglesY, margin+toggleW, togglesY+checkSize), label: "Show face boxes"},
		points:    widget{rect: image.Rect(margin+toggleW+20, togglesY, margin+2*toggleW+20, togglesY+checkSize), label: "Show landmarks"},
		start:     widget{rect: image.Rect(margin, buttonsY, margin+buttonW, buttonsY+buttonH), label: "Start camera"},
		stop:      widget{rect: image.Rect(margin+buttonW+10, buttonsY, margin+2*buttonW+10, buttonsY+buttonH), label: "Stop camera"},
		status:    ctrl.Status(),
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
// It returns after the window is closed and the controller torn down.
func (p *Panel) Run() error {
	ebiten.SetWindowSize(panelWidth, panelHeight)
	ebiten.SetWindowTitle(p.title)
	ebiten.SetWindowClosingHandled(true)
	return ebiten.RunGame(p)
}

// --- ebiten.Game interface ---

func (p *Panel) Update() error {
	if ebiten.IsWindowBeingClosed() || p.ctx.Err() != nil {
		if err := p.ctrl.Close(); err != nil {
			log.Warn(log.Fields{"error": err}, "session close failed")
		}
		return ebiten.Termination
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		p.click(image.Pt(ebiten.CursorPosition()))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		p.toggleBoxes()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		p.togglePoints()
	}

	p.refresh()
	return nil
}

func (p *Panel) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)
	p.drawVideo(screen)

	if p.status.Error != "" {
		vector.DrawFilledRect(screen, float32(p.videoRect.Min.X), float32(p.videoRect.Min.Y),
			float32(p.videoRect.Dx()), 22, colorBanner, false)
		ebitenutil.DebugPrintAt(screen, truncate("Error: "+p.status.Error, 100), p.videoRect.Min.X+6, p.videoRect.Min.Y+3)
	}

	ebitenutil.DebugPrintAt(screen, p.status.Text(), margin, statusY)

	toggles := p.ctrl.Toggles()
	drawCheckbox(screen, p.boxes, toggles.Boxes())
	drawCheckbox(screen, p.points, toggles.Points())

	running := p.status.State == session.Running
	drawButton(screen, p.start, !running, colorEnabled)
	drawButton(screen, p.stop, running, colorStop)
}

func (p *Panel) Layout(outsideWidth, outsideHeight int) (int, int) {
	return panelWidth, panelHeight
}

// click dispatches a left click at pt in panel coordinates.
func (p *Panel) click(pt image.Point) {
	running := p.ctrl.Status().State == session.Running

	switch {
	case p.boxes.hit(pt):
		p.toggleBoxes()
	case p.points.hit(pt):
		p.togglePoints()
	case p.start.hit(pt) && !running:
		// Runs on the UI thread; a missing model or camera shows up in the status.
		if err := p.ctrl.Start(p.ctx); err != nil {
			log.Warn(log.Fields{"error": err}, "start failed")
		}
	case p.stop.hit(pt) && running:
		p.ctrl.Stop()
		p.slot.Clear()
	}
}

func (p *Panel) toggleBoxes() {
	t := p.ctrl.Toggles()
	t.SetBoxes(!t.Boxes())
}

func (p *Panel) togglePoints() {
	t := p.ctrl.Toggles()
	t.SetPoints(!t.Points())
}

// refresh pulls the latest status and frame for the next Draw.
func (p *Panel) refresh() {
	p.status = p.ctrl.Status()
	if p.status.State != session.Running {
		p.frame = nil
		return
	}
	if frame, ok := p.slot.Take(); ok {
		p.frame = frame
	}
}

func (p *Panel) drawVideo(screen *ebiten.Image) {
	r := p.videoRect
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), colorVideo, false)

	frame := p.frame
	if frame == nil {
		hint := "Camera stopped. Press \"Start camera\"."
		if !p.status.ModelsLoaded {
			hint = "Models not loaded. Press \"Start camera\" to retry."
		}
		ebitenutil.DebugPrintAt(screen, hint, r.Min.X+r.Dx()/2-len(hint)*3, r.Min.Y+r.Dy()/2)
		return
	}

	if p.ebitenImage == nil ||
		p.ebitenImage.Bounds().Dx() != frame.Bounds().Dx() ||
		p.ebitenImage.Bounds().Dy() != frame.Bounds().Dy() {
		p.ebitenImage = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	p.ebitenImage.WritePixels(frame.Pix)

	fw, fh := float64(frame.Bounds().Dx()), float64(frame.Bounds().Dy())
	scale, offsetX, offsetY := aspectFitTransform(float64(r.Dx()), float64(r.Dy()), fw, fh)
	// Never upscale; small frames stay centered at native size.
	if scale > 1 {
		scale = 1
		offsetX = (float64(r.Dx()) - fw) / 2
		offsetY = (float64(r.Dy()) - fh) / 2
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(float64(r.Min.X)+offsetX, float64(r.Min.Y)+offsetY)
	screen.DrawImage(p.ebitenImage, op)
}

func drawCheckbox(screen *ebiten.Image, w widget, checked bool) {
	x, y := float32(w.rect.Min.X), float32(w.rect.Min.Y)
	vector.StrokeRect(screen, x, y, checkSize, checkSize, 1, colorBorder, false)
	if checked {
		vector.DrawFilledRect(screen, x+3, y+3, checkSize-6, checkSize-6, colorEnabled, false)
	}
	ebitenutil.DebugPrintAt(screen, w.label, w.rect.Min.X+checkSize+6, w.rect.Min.Y-1)
}

func drawButton(screen *ebiten.Image, w widget, enabled bool, fill color.Color) {
	if !enabled {
		fill = colorDisabled
	}
	r := w.rect
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), fill, false)
	vector.StrokeRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 1, colorBorder, false)
	ebitenutil.DebugPrintAt(screen, w.label, r.Min.X+(r.Dx()-len(w.label)*6)/2, r.Min.Y+(r.Dy()-16)/2)
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
