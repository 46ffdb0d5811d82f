// Package alarm contains the brightness alarm core.
//
// A Reading is compared against a live Threshold. The first reading strictly
// below it arms a single-slot State and yields Trigger; every later reading
// yields NoTrigger until the alert completion for that arming is reported.
// There is no cooldown timer: only Complete re-arms the alarm.
package alarm
