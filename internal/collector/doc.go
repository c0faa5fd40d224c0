// Package collector fetches and parses sport schedules from public
// websites.
//
// Each sport has one collector with a ranked list of sources. Sources are
// tried in order and the first one that yields events wins; a sport whose
// sources are all unreachable collects zero events rather than failing
// the run. Parsed records that fail validation are dropped individually.
package collector
