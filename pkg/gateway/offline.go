package gateway

import (
	"fmt"
	"html"

	"guidecache/pkg/models"
)

// offlinePage generates the minimal notice served when no cached page can
// satisfy a navigation.
func offlinePage(path string, l models.Locale) []byte {
	return []byte(fmt.Sprintf(`<!doctype html>
<html lang=%q>
<head><meta charset="utf-8"><title>Offline</title></head>
<body>
<h1>You are offline</h1>
<p>The page %s is not available offline yet.</p>
<p>Reconnect, or download this language for offline use from the guide menu.</p>
</body>
</html>
`, string(l), html.EscapeString(path)))
}
