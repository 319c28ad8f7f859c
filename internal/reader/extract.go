package reader

import (
	"strconv"
	"strings"
	"time"

	"github.com/intunewithnature/evtxkit/internal/binxml"
	"github.com/intunewithnature/evtxkit/internal/format"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

// messageSeparator joins the EventData item values in Event.Message.
const messageSeparator = " | "

// extractEvent maps a decoded record tree to the normalized event. It
// returns ok=false when the conventional System subtree is missing; such
// records are excluded from the stream rather than failing it.
func extractEvent(root binxml.Node, rec format.Record) (types.Event, bool) {
	el := rootElement(root)
	if el == nil {
		return types.Event{}, false
	}
	sys := el.Child("System")
	if sys == nil {
		return types.Event{}, false
	}
	ev := types.Event{
		RecordID:  rec.ID,
		Timestamp: format.FiletimeToTime(rec.TimeRaw),
	}
	if id := sys.Child("EventID"); id != nil {
		if n, err := strconv.ParseUint(strings.TrimSpace(id.Text()), 10, 32); err == nil {
			ev.EventID = uint32(n)
		}
	}
	// Level defaults to info when absent or unparseable.
	if lvl := sys.Child("Level"); lvl != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(lvl.Text())); err == nil {
			ev.Level = types.LevelFromNumber(n)
		}
	}
	if tc := sys.Child("TimeCreated"); tc != nil {
		if t, ok := attrTime(tc, "SystemTime"); ok {
			ev.Timestamp = t
		}
	}
	if prov := sys.Child("Provider"); prov != nil {
		ev.Provider, _ = prov.Attr("Name")
	}
	if data := el.Child("EventData"); data != nil {
		ev.Message = joinEventData(data)
	}
	return ev, true
}

// rootElement unwraps the record tree to its Event element. The fragment
// root is normally the Event element itself.
func rootElement(root binxml.Node) *binxml.Element {
	el, ok := root.(*binxml.Element)
	if !ok {
		return nil
	}
	if el.Name == "Event" {
		return el
	}
	return el.Child("Event")
}

// attrTime resolves a timestamp attribute, either a typed FILETIME value or
// its textual rendering.
func attrTime(el *binxml.Element, name string) (time.Time, bool) {
	node, ok := el.AttrNode(name)
	if !ok {
		return time.Time{}, false
	}
	if v, ok := node.(*binxml.Value); ok {
		if t, ok := v.V.(time.Time); ok {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, node.Text()); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// joinEventData joins the text values of all EventData items with the
// message separator, truncated to types.MaxMessageLen characters.
func joinEventData(data *binxml.Element) string {
	var b strings.Builder
	for _, c := range data.Children {
		item, ok := c.(*binxml.Element)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(messageSeparator)
		}
		b.WriteString(item.Text())
	}
	msg := b.String()
	if r := []rune(msg); len(r) > types.MaxMessageLen {
		msg = string(r[:types.MaxMessageLen])
	}
	return msg
}
