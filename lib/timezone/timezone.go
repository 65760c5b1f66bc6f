package timezone

import "time"

// Location is the zone product timestamps are written in, the shops we
// scrape all report stock in Moscow time.
var Location *time.Location

// StampLayout matches the last_upd_time format written by the scrapers.
const StampLayout = "2006-01-02 15:04:05"

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Moscow")
	if err != nil {
		Location = time.FixedZone("MSK", 3*60*60)
	}
}

// Use overrides the default location, an empty name keeps the current one.
func Use(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

func Now() time.Time {
	return time.Now().In(Location)
}

// Stamp formats t the way last_upd_time cells are written.
func Stamp(t time.Time) string {
	return t.In(Location).Format(StampLayout)
}
