package admin

import (
	"io/fs"
	"testing/fstest"
)

func fstestSources() fs.FS {
	return fstest.MapFS{
		"widget_controller.go": &fstest.MapFile{Data: []byte(`package admin

type WidgetController struct{ Controller }

func (w *WidgetController) Index(c echo.Context) error {
	if err := w.CheckPermission(c, "widgets.view"); err != nil {
		return err
	}
	return nil
}

func (w *WidgetController) Delete(c echo.Context) error {
	return nil
}
`)},
	}
}
