package browser

import (
	"encoding/json"
	"fmt"
)

// refAttr marks nodes returned from Query so later calls can address them.
const refAttr = "data-seatcap-ref"

const queryJS = `(function(scopeSel, sel) {
  const visible = (el) => {
    if (!el || !el.isConnected) return false;
    const st = getComputedStyle(el);
    if (st.display === "none" || st.visibility !== "visible" || st.pointerEvents === "none") return false;
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  let root = document;
  if (scopeSel) {
    root = Array.from(document.querySelectorAll(scopeSel)).find(visible);
    if (!root) return [];
  }
  window.__seatcapSeq = window.__seatcapSeq || 0;
  return Array.from(root.querySelectorAll(sel)).map((el) => {
    let ref = el.getAttribute("` + refAttr + `");
    if (!ref) {
      ref = String(++window.__seatcapSeq);
      el.setAttribute("` + refAttr + `", ref);
    }
    const dates = [];
    for (let n = el; n && n.getAttribute; n = n.parentElement) {
      for (const a of ["data-date", "data-navlink"]) {
        const v = n.getAttribute(a);
        if (v) dates.push(v);
      }
    }
    return {
      ref: '[` + refAttr + `="' + ref + '"]',
      tag: el.tagName.toLowerCase(),
      text: (el.innerText || el.value || el.textContent || "").replace(/\s+/g, " ").trim(),
      class: typeof el.className === "string" ? el.className : "",
      href: el.getAttribute("href") || el.getAttribute("data-url") || el.getAttribute("data-href") || "",
      visible: visible(el),
      dates: dates,
    };
  });
})(%s, %s)`

const scrollJS = `(function(sel) {
  const el = document.querySelector(sel);
  if (!el) return false;
  el.scrollIntoView({ block: "center", inline: "center" });
  return true;
})(%s)`

const hitTestJS = `(function(sel) {
  const el = document.querySelector(sel);
  if (!el || !el.isConnected) return false;
  const s = getComputedStyle(el);
  if (s.display === "none" || s.visibility !== "visible" || s.pointerEvents === "none") return false;
  const r = el.getBoundingClientRect();
  const top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
  return !!top && (top === el || el.contains(top)) &&
    !el.disabled && el.getAttribute("aria-disabled") !== "true";
})(%s)`

// script fills a JS template with JSON-quoted string arguments.
func script(tmpl string, args ...string) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		quoted[i] = string(b)
	}
	return fmt.Sprintf(tmpl, quoted...)
}
