/*

Package lorawan implements the LoRaWAN 1.0.4 end-device frame codec:
MHDR/FHDR parsing, FRMPayload encryption, CMAC MIC calculation, Join-Accept
decryption and session-key derivation.

The MAC-command codec lives in the maccmd subpackage, the regional channel
plan in band, session/engine state in mac, collaborator contracts in
device, and the RX-window scheduling loops in scheduler.

*/
package lorawan
