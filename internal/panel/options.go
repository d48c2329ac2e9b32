package panel

import "github.com/justyntemme/salpanel/internal/pluginfs"

// NoTopIndex means no scroll position was suggested.
const NoTopIndex = -1

// Options tune a single path change. Start from NewOptions; the zero
// value turns off list box refresh and shortening warnings.
type Options struct {
	TopIndex           int    // suggested scroll position, NoTopIndex for none
	FocusName          string // entry to put the caret on
	ForceUpdate        bool   // reread even when the location did not change
	CanForce           bool   // offer a forced close when the current location refuses
	IsRefresh          bool   // background refresh: no prompts, no history noise
	ShorterPathWarning bool   // report why a path had to be shortened
	RefreshListBox     bool   // push the new listing to the list box
	CanFocusFileName   bool   // a trailing file name may be focused instead of failing
	IsHistory          bool   // navigation comes from the history list
	ConvertPath        bool   // run the plugin's ConvertPathToInternal on the user part
	Mode               int    // pluginfs.ModeRefresh, ModeHistory or ModeUserInput
	CloseReason        pluginfs.CloseReason
}

// NewOptions returns the defaults of an ordinary user navigation.
func NewOptions() Options {
	return Options{
		TopIndex:           NoTopIndex,
		ShorterPathWarning: true,
		RefreshListBox:     true,
		Mode:               pluginfs.ModeHistory,
		CloseReason:        pluginfs.ReasonChangePath,
	}
}

// WithHints returns o with a suggested scroll position and focus.
func (o Options) WithHints(top int, focus string) Options {
	o.TopIndex = top
	o.FocusName = focus
	return o
}

func (o Options) clearHints() Options {
	o.TopIndex = NoTopIndex
	o.FocusName = ""
	return o
}
