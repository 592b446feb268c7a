// Package easel is an interactive infinite-canvas engine for [Ebitengine].
//
// Easel provides the scene model for a pannable, unbounded 2D surface
// populated with manipulable image and text items: pointer-driven drag,
// uniform resize, single selection, type-in-place text creation, and
// debounced document persistence against an HTTP collaborator.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window, wires
// device input into the canvas, and renders the scene for you:
//
//	canvas := easel.NewCanvas(800, 600)
//	easel.Run(canvas, easel.RunConfig{
//		Title: "My Board", Width: 800, Height: 600,
//	})
//
// For full control, implement [ebiten.Game] yourself and drive the canvas
// event API directly: [Canvas.PointerDown], [Canvas.PointerMove],
// [Canvas.PointerUp], [Canvas.Wheel], [Canvas.KeyDown], [Canvas.TypeRune].
//
// # Coordinate model
//
// Screen coordinates are what the input device reports; world coordinates
// are positions on the unbounded surface. The two differ only by the
// current pan offset, owned by [Viewport]. All resize math is projected
// into screen space so a gesture stays correct even when the pointer
// leaves the item's own bounds.
//
// # Persistence
//
// A [Syncer] serializes the item set into a [Document], debounces saves
// (trailing edge, one underlying save per quiet window), and tolerantly
// rehydrates documents: a single corrupt entry never aborts a load.
// Storage and image generation are consumed only through the [Persister]
// and [Generator] collaborator interfaces.
//
// [Ebitengine]: https://ebitengine.org
package easel
