package qvf

import "fmt"

// ContainerFormatUnsupportedError is returned when a bundle is not a ZIP
// archive, typically a proprietary binary export from Qlik Sense cloud.
// The converter does not reverse-engineer that format; the fix is to
// re-export the app as a standard .qvf from the hub or the desktop client.
type ContainerFormatUnsupportedError struct {
	Path      string
	Signature string
}

func (e *ContainerFormatUnsupportedError) Error() string {
	return fmt.Sprintf("unsupported container format for %s (detected %s, expected a ZIP-based .qvf)\nHint: re-export the application as a .qvf bundle from Qlik Sense Desktop or the hub's Export without data option", e.Path, e.Signature)
}

// EntryNotFoundError is returned when a required bundle entry is absent.
type EntryNotFoundError struct {
	Path string
	Name string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("required entry %q not found in bundle %s", e.Name, e.Path)
}
