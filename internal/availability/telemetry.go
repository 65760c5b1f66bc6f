package availability

import "catalogdesk-backend/lib/restyutil"

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps the http traffic of clients created
// afterwards into out.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
