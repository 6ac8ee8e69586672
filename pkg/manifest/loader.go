package manifest

import (
	"time"

	"guidecache/pkg/fetch"
	"guidecache/pkg/logger"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
)

// Fetcher is the subset of the origin client the loader needs.
type Fetcher interface {
	FetchTimeout(path string, d time.Duration) (*fetch.Result, error)
}

// loadTimeout bounds the network attempt for room data so an offline start
// falls back to cache quickly.
const loadTimeout = 5 * time.Second

// LoadRooms obtains the locale's parsed room list, preferring the network
// and falling back to the Data partition. Successful network loads are
// written through so later offline starts succeed. Returns ErrUnavailable
// when neither source can serve.
func LoadRooms(l models.Locale, f Fetcher) ([]models.Room, error) {
	path := DataPath(l)
	if f != nil {
		if res, err := f.FetchTimeout(path, loadTimeout); err == nil {
			if res.OK() {
				rooms, perr := models.ParseRooms(res.Body)
				if perr == nil {
					if err := store.Put(store.Data, path, store.Entry{
						Status:      res.Status,
						ContentType: "application/json",
						Body:        append([]byte(nil), res.Body...),
					}); err != nil {
						logger.Warn("room_data_cache_write_failed", "locale", string(l), "error", err)
					}
					res.Release()
					return rooms, nil
				}
				logger.Warn("room_data_parse_failed", "locale", string(l), "error", perr)
			}
			res.Release()
		}
	}
	e, err := store.Get(store.Data, path)
	if err != nil {
		logger.Info("room_data_unavailable", "locale", string(l))
		return nil, ErrUnavailable
	}
	rooms, perr := models.ParseRooms(e.Body)
	if perr != nil {
		return nil, ErrUnavailable
	}
	return rooms, nil
}
