package window

// Key is a keyboard key code. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeySpace Key = 32
	KeyF     Key = 70
	KeyL     Key = 76
	KeyP     Key = 80
	KeyR     Key = 82
	KeyEsc   Key = 256
)
