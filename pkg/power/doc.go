// Package power controls the low-power state of sub-links.
//
// Each sub-link (RX and TX) is either hardware controlled, entering low
// power autonomously after an idle threshold, or software forced into the
// desired state. On generations with the idle counter erratum the desired
// state and hardware-disable fields are written in one register write.
package power
