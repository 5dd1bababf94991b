// Package schedule fetches the daily prayer-time feed and computes the
// countdown to the next entry.
//
// The feed is RSS. Only the first item is used: its title carries the date
// and its description the label/time pairs, in either "Label HH:MM" or
// "Label : HH:MM" form. Labels are matched after folding diacritics, so
// "Güneş", "GUNES" and "gunes" are the same entry.
package schedule
